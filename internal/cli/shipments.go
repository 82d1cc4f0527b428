package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/eshop/internal/shipping"
)

func newTypesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the available shipping types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := shipping.ListAvailableShippingType()
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), types)
			}
			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <shipping-id>",
		Short: "Print the status of a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := svc.CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"shipping_id": args[0], "status": string(status)})
			}
			statusLine(cmd.OutOrStdout(), args[0], status)
			return nil
		},
	}
}

func newProcessCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "process <shipping-id>",
		Short: "Advance a shipment by one status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := svc.ProcessShipping(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"shipping_id": args[0], "status": string(status)})
			}
			statusLine(cmd.OutOrStdout(), args[0], status)
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <shipping-id>",
		Short: "Print a shipment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := svc.GetShipping(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), s)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "shipping id:   %s\n", s.ShippingID)
			fmt.Fprintf(w, "order id:      %s\n", s.OrderID)
			fmt.Fprintf(w, "status:        %s\n", s.Status)
			fmt.Fprintf(w, "shipping type: %s\n", s.ShippingType)
			fmt.Fprintf(w, "products:      %s\n", strings.Join(s.ProductIDs, ", "))
			fmt.Fprintf(w, "due date:      %s\n", s.DueDate.Format(time.RFC3339))
			fmt.Fprintf(w, "updated at:    %s\n", s.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newLogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "log <order-id>",
		Short: "Print the placement log of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openPlacementLog()
			if err != nil {
				return err
			}
			defer repo.Close()

			history, err := repo.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), history)
			}
			w := cmd.OutOrStdout()
			for _, e := range history {
				fmt.Fprintf(w, "%s\t%-12s\t%s", e.UpdatedAt.Format(time.RFC3339), e.Status, e.CurrentStep)
				if errs := e.Errors(); len(errs) > 0 {
					fmt.Fprintf(w, "\t%s", strings.Join(errs, "; "))
				}
				if e.TraceID != "" {
					fmt.Fprintf(w, "\ttrace=%s", e.TraceID)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}
