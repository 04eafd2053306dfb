package main

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dicore/internal/config"
	"dicore/pkg/container"
	"dicore/pkg/reflection"
	"dicore/pkg/typedesc"
)

func newRunCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the container's end-to-end scenarios and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each registered class descriptor before resolving it")
	return cmd
}

func run(cmd *cobra.Command, verbose bool) error {
	c, err := container.New(config.Default())
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}
	defer func() {
		if err := c.Shutdown(); err != nil {
			c.Logger().Warnw("shutdown reported errors", "error", err)
		}
	}()

	inspector := reflection.NewInspector(c.Logger())
	out := cmd.OutOrStdout()

	ctx := context.Background()

	fmt.Fprintln(out, "== scenario 1: basic singleton sharing ==")
	if err := registerSingletonSharingScenario(c); err != nil {
		return err
	}
	rh, err := c.Inject(ctx, typedesc.NewClass(reflect.TypeOf(requestHandler{})))
	if err != nil {
		return err
	}
	bw, err := c.Inject(ctx, typedesc.NewClass(reflect.TypeOf(backgroundWorker{})))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "requestHandler.Clock == backgroundWorker.Clock: %v\n\n",
		rh.(*requestHandler).Clock == bw.(*backgroundWorker).Clock)

	fmt.Fprintln(out, "== scenario 2: qualifier disambiguation ==")
	if err := registerQualifierDisambiguationScenario(c); err != nil {
		return err
	}
	ifaceType := reflect.TypeOf((*store)(nil)).Elem()
	s, err := c.Inject(ctx, typedesc.NewClass(ifaceType), typedesc.Named("backup"))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "resolved store for @Named(backup): %T\n\n", s)

	fmt.Fprintln(out, "== scenario 3: ambiguity ==")
	if err := registerAmbiguityScenario(c); err != nil {
		return err
	}
	rendererIfaceType := reflect.TypeOf((*renderer)(nil)).Elem()
	if _, err := c.Inject(ctx, typedesc.NewClass(rendererIfaceType)); err != nil {
		fmt.Fprintf(out, "resolving renderer failed as expected: %v\n\n", err)
	} else {
		fmt.Fprintln(out, "unexpected: renderer resolved without ambiguity")
	}

	fmt.Fprintln(out, "== scenario 4: optional missing dependency ==")
	if err := registerOptionalMissingScenario(c); err != nil {
		return err
	}
	inst, err := c.Inject(ctx, typedesc.NewClass(reflect.TypeOf(instrumentedService{})))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "instrumentedService.Metrics.IsPresent(): %v\n\n", inst.(*instrumentedService).Metrics.IsPresent())

	fmt.Fprintln(out, "== scenario 5: cycle broken via Provider ==")
	if err := registerProviderCycleScenario(c); err != nil {
		return err
	}
	ov, err := c.Inject(ctx, typedesc.NewClass(reflect.TypeOf(orderService{})))
	if err != nil {
		return err
	}
	order := ov.(*orderService)
	inv, err := order.Inventory.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "inventoryService.Orders == orderService: %v\n\n", inv.Orders == order)

	fmt.Fprintln(out, "== scenario 6: request-scoped partition keyed by a minted id ==")
	if err := registerRequestScopeScenario(c); err != nil {
		return err
	}
	reqID := uuid.NewString()
	reqCtx := withRequestID(ctx, reqID)
	rc1, err := c.Inject(reqCtx, typedesc.NewClass(reflect.TypeOf(requestContext{})))
	if err != nil {
		return err
	}
	rc2, err := c.Inject(reqCtx, typedesc.NewClass(reflect.TypeOf(requestContext{})))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %s: same instance within the partition: %v\n\n", reqID, rc1 == rc2)

	fmt.Fprintln(out, "== scenario 7: parallel task executor ==")
	if err := runExecutorScenario(c, out); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(out, "== registered classes ==")
		for _, cd := range c.Descriptors() {
			fmt.Fprint(out, inspector.PrettyPrint(cd))
		}
	}

	return nil
}
