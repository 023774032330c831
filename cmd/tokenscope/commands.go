package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/you/tokenscope/internal/app"
	"github.com/you/tokenscope/internal/config"
	"github.com/you/tokenscope/internal/identity"
	"github.com/you/tokenscope/internal/logging"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

type rootOpts struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}
	root := &cobra.Command{
		Use:          "tokenscope",
		Short:        "Multi-provider token search, pricing and trending",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "./config.yaml", "путь к конфигу")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "override log.level from the config")

	root.AddCommand(
		newServeCmd(o),
		newSearchCmd(o),
		newPriceCmd(o),
		newTrendingCmd(o),
		newTokenCmd(o),
	)
	return root
}

// setup loads config and builds the app. The caller closes it.
func (o *rootOpts) setup(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return app.New(ctx, cfg, log), log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the metrics server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, err := o.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}

func newSearchCmd(o *rootOpts) *cobra.Command {
	var networks string
	cmd := &cobra.Command{
		Use:   "search <phrase>",
		Short: "Search tokens by phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nets, err := types.ParseNetworks(networks)
			if err != nil {
				return err
			}
			a, _, err := o.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.Service().SearchTokens(cmd.Context(), strings.Join(args, " "), nets)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&networks, "networks", "", "comma-separated network ids")
	return cmd
}

func newPriceCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "price <symbol>...",
		Short: "Resolve USD prices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := o.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if len(args) == 1 {
				return printJSON(cmd.OutOrStdout(), a.Service().ResolvePrice(cmd.Context(), args[0]))
			}
			return printJSON(cmd.OutOrStdout(), a.Service().ResolvePrices(cmd.Context(), args))
		},
	}
}

func newTrendingCmd(o *rootOpts) *cobra.Command {
	var (
		networks string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "List trending tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nets, err := types.ParseNetworks(networks)
			if err != nil {
				return err
			}
			a, _, err := o.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.Service().ListTrending(cmd.Context(), nets, limit))
		},
	}
	cmd.Flags().StringVar(&networks, "networks", "", "comma-separated network ids")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (0 = configured default)")
	return cmd
}

func newTokenCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "token <network> <address>",
		Short: "Look a token up by address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || n <= 0 {
				return fmt.Errorf("bad network %q", args[0])
			}
			network := types.Network(n)
			if !identity.Valid(args[1], network) {
				return fmt.Errorf("invalid address %q for network %s", args[1], network)
			}
			a, _, err := o.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			tok, src := a.Service().LookupToken(cmd.Context(), args[1], []types.Network{network})
			if src == types.SourceNone {
				return fmt.Errorf("token %s not found", identity.CanonicalKey(args[1], network))
			}
			tok.Address = identity.DisplayAddress(tok.Address, identity.CaseSensitive(tok.Network))
			return printJSON(cmd.OutOrStdout(), map[string]any{"token": tok, "source": src})
		},
	}
}
