package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/node"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	senderF     = "sender"
	functionF   = "function"
	typeArgsF   = "type-args"
	argsF       = "args"
	payloadF    = "payload"
	maxGasF     = "max-gas"
	gasPriceF   = "gas-price"
	sequenceF   = "sequence-number"
	expirationF = "expiration"
	resourcesF  = "resources"
)

// session is what a one-shot command runs against.
type session struct {
	cfg     *node.Config
	svc     *simulator.Service
	printer *printer
	network string
}

// runE builds a service from the resolved configuration for the duration of fn.
func runE(fn func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error,
) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := utils.NewZapLogger(cfg.LogLevel, cfg.Colour)
		if err != nil {
			return err
		}
		svc, err := node.NewService(cfg, log, Version)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := svc.History().Close(); closeErr != nil {
				log.Errorw("Error while closing the history", "err", closeErr)
			}
		}()

		network := utils.Testnet
		if cfg.Network != 0 {
			network = cfg.Network
		}
		return fn(cmd.Context(), cmd, args, &session{
			cfg:     cfg,
			svc:     svc,
			printer: newPrinter(cmd.OutOrStdout(), output, cfg.Colour),
			network: network.String(),
		})
	}
}

func addPayloadFlags(cmd *cobra.Command) {
	cmd.Flags().String(senderF, "", "Address of the sending account.")
	cmd.Flags().String(functionF, "", "Entry function as <address>::<module>::<name>.")
	cmd.Flags().StringSlice(typeArgsF, nil, "Type arguments of the function.")
	cmd.Flags().String(argsF, "[]", "Arguments as a JSON array.")
	cmd.Flags().String(payloadF, "", "Whole payload as JSON. Overrides --function, --type-args and --args.")
}

// payloadFrom reads the entry function payload either from --payload or from its parts.
func payloadFrom(cmd *cobra.Command) (*movement.EntryFunctionPayload, error) {
	raw, err := cmd.Flags().GetString(payloadF)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		return movement.ParsePayload(raw)
	}

	function, err := cmd.Flags().GetString(functionF)
	if err != nil {
		return nil, err
	}
	typeArgs, err := cmd.Flags().GetStringSlice(typeArgsF)
	if err != nil {
		return nil, err
	}
	args, err := cmd.Flags().GetString(argsF)
	if err != nil {
		return nil, err
	}
	var arguments []json.RawMessage
	if err = json.Unmarshal([]byte(args), &arguments); err != nil {
		return nil, &movement.InvalidPayloadError{Field: "arguments", Reason: "Invalid --args: " + err.Error()}
	}
	b, err := json.Marshal(movement.EntryFunctionPayload{
		Function:      function,
		TypeArguments: typeArgs,
		Arguments:     arguments,
	})
	if err != nil {
		return nil, err
	}
	return movement.ParsePayload(string(b))
}

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate an entry function call without a signature.",
		Args:  cobra.NoArgs,
	}
	addPayloadFlags(cmd)
	cmd.Flags().String(maxGasF, "", "Max gas amount. Estimated by the node when empty.")
	cmd.Flags().String(gasPriceF, "", "Gas unit price. Estimated by the node when empty.")
	cmd.Flags().String(sequenceF, "", "Sequence number. Read from the chain when empty.")
	cmd.Flags().String(expirationF, "", "Expiration timestamp in seconds.")

	cmd.RunE = runE(func(ctx context.Context, cmd *cobra.Command, _ []string, s *session) error {
		payload, err := payloadFrom(cmd)
		if err != nil {
			return err
		}
		req := simulator.SimulateRequest{Payload: *payload, Network: s.network}
		for flag, dst := range map[string]*string{
			senderF:     &req.Sender,
			maxGasF:     &req.Gas.MaxGasAmount,
			gasPriceF:   &req.Gas.GasUnitPrice,
			sequenceF:   &req.Gas.SequenceNumber,
			expirationF: &req.Gas.ExpirationTimestampSecs,
		} {
			if *dst, err = cmd.Flags().GetString(flag); err != nil {
				return err
			}
		}

		result, err := s.svc.Simulate(ctx, req)
		if err != nil {
			return err
		}
		return s.printer.print(result, func() {
			s.printer.result(result)
		})
	})
	return cmd
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <hash>",
		Short: "Re-simulate a committed transaction against the current state.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, _ *cobra.Command, args []string, s *session) error {
			replay, err := s.svc.Replay(ctx, args[0], s.network)
			if err != nil {
				return err
			}
			return s.printer.print(replay, func() {
				p := s.printer
				p.heading("Original")
				p.fields([][]string{
					{"Status", p.status(replay.Original.Success)},
					{"VM status", replay.Original.VMStatus},
					{"Gas used", replay.Original.GasUsed},
					{"Version", replay.Original.Version},
					{"Timestamp", replay.Original.Timestamp},
				})
				p.heading("Simulation")
				p.result(replay.Simulation)
			})
		}),
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a payload against on-chain state before simulating it.",
		Args:  cobra.NoArgs,
	}
	addPayloadFlags(cmd)
	cmd.RunE = runE(func(ctx context.Context, cmd *cobra.Command, _ []string, s *session) error {
		payload, err := payloadFrom(cmd)
		if err != nil {
			return err
		}
		sender, err := cmd.Flags().GetString(senderF)
		if err != nil {
			return err
		}

		report, err := s.svc.Validate(ctx, sender, *payload, s.network)
		if err != nil {
			return err
		}
		return s.printer.print(report, func() {
			p := s.printer
			p.fields([][]string{
				{"Valid", p.status(report.Valid)},
				{"Account exists", p.check(report.Checks.AccountExists)},
				{"Has balance", p.check(report.Checks.HasBalance)},
				{"Module exists", p.check(report.Checks.ModuleExists)},
				{"Function exists", p.check(report.Checks.FunctionExists)},
				{"Sequence number", report.Info.SequenceNumber},
				{"Balance", withUnit(report.Info.BalanceMove, "MOVE")},
				{"Estimated gas price", formatUint(report.Info.EstimatedGasPrice)},
				{"Block height", report.Info.BlockHeight},
			})
			for _, w := range report.Warnings {
				p.line("%s %s", p.bad.Sprint("!"), w)
			}
		})
	})
	return cmd
}

func txCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tx <hash>",
		Short: "Look a committed transaction up.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, _ *cobra.Command, args []string, s *session) error {
			tx, err := s.svc.GetTransaction(ctx, args[0], s.network)
			if err != nil {
				return err
			}
			return s.printer.print(tx, func() {
				p := s.printer
				function := ""
				if tx.Payload != nil {
					function = tx.Payload.Function
				}
				p.fields([][]string{
					{"Hash", tx.Hash},
					{"Type", tx.Type},
					{"Version", tx.Version},
					{"Status", p.status(tx.Success)},
					{"VM status", tx.VMStatus},
					{"Sender", tx.Sender},
					{"Function", function},
					{"Gas used", tx.GasUsed},
					{"Gas unit price", tx.GasUnitPrice},
					{"Timestamp", tx.Timestamp},
				})
			})
		}),
	}
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account <address>",
		Short: "Show whether an account exists and its sequence number.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Bool(resourcesF, false, "Also list the account's resources.")
	cmd.RunE = runE(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		resources, err := cmd.Flags().GetBool(resourcesF)
		if err != nil {
			return err
		}
		info, err := s.svc.GetAccountInfo(ctx, args[0], s.network, resources)
		if err != nil {
			return err
		}
		return s.printer.print(info, func() {
			p := s.printer
			p.fields([][]string{
				{"Exists", strconv.FormatBool(info.Exists)},
				{"Sequence number", info.SequenceNumber},
				{"Authentication key", utils.Deref(info.AuthenticationKey)},
			})
			if len(info.Resources) > 0 {
				rows := make([][]string, 0, len(info.Resources))
				for _, r := range info.Resources {
					rows = append(rows, []string{r.Type})
				}
				p.table([]string{"Resource"}, rows)
			}
		})
	})
	return cmd
}

func recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recent entry function transactions to replay.",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ *cobra.Command, _ []string, s *session) error {
			recent, err := s.svc.RecentTransactions(ctx, s.network)
			if err != nil {
				return err
			}
			return s.printer.print(recent, func() {
				rows := make([][]string, 0, len(recent))
				for _, tx := range recent {
					rows = append(rows, []string{tx.Hash, tx.Sender, tx.Function, s.printer.status(tx.Success), tx.GasUsed})
				}
				s.printer.table([]string{"Hash", "Sender", "Function", "Status", "Gas used"}, rows)
			})
		}),
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every endpoint of the network.",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ *cobra.Command, _ []string, s *session) error {
			health, err := s.svc.NetworkHealth(ctx, s.network)
			if err != nil {
				return err
			}
			return s.printer.print(health, func() {
				p := s.printer
				p.heading(fmt.Sprintf("%s: %s", health.Name, healthColour(p, health.Status)))
				rows := make([][]string, 0, len(health.Endpoints))
				for _, e := range health.Endpoints {
					code := ""
					if e.StatusCode != 0 {
						code = strconv.Itoa(e.StatusCode)
					}
					rows = append(rows, []string{
						e.Endpoint,
						strconv.FormatBool(e.Primary),
						healthColour(p, e.Status),
						code,
						(time.Duration(e.LatencyMs) * time.Millisecond).String(),
						e.BlockHeight,
						e.Error,
					})
				}
				p.table([]string{"Endpoint", "Primary", "Status", "Code", "Latency", "Block height", "Error"}, rows)
			})
		}),
	}
}

func healthColour(p *printer, status simulator.HealthStatus) string {
	switch status {
	case simulator.Online:
		return p.ok.Sprint(status)
	case simulator.Offline:
		return p.bad.Sprint(status)
	default:
		return string(status)
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the simulations recorded in --history-path.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recorded simulations, newest first.",
			Args:  cobra.NoArgs,
			RunE: runE(func(_ context.Context, _ *cobra.Command, _ []string, s *session) error {
				records, err := s.svc.History().List()
				if err != nil {
					return err
				}
				return s.printer.print(records, func() {
					rows := make([][]string, 0, len(records))
					for i := range records {
						rec := &records[i]
						target := rec.Function
						if rec.Hash != "" {
							target = rec.Hash
						}
						success := ""
						if rec.Result != nil {
							success = s.printer.status(rec.Result.Success)
						}
						rows = append(rows, []string{
							rec.ID, rec.CreatedAt.Format(time.RFC3339), string(rec.Kind), rec.Network, target, success,
						})
					}
					s.printer.table([]string{"Id", "Created", "Kind", "Network", "Target", "Status"}, rows)
				})
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one recorded simulation.",
			Args:  cobra.ExactArgs(1),
			RunE: runE(func(_ context.Context, _ *cobra.Command, args []string, s *session) error {
				rec, err := s.svc.History().Get(args[0])
				if err != nil {
					return err
				}
				return s.printer.print(rec, func() {
					p := s.printer
					p.fields([][]string{
						{"Id", rec.ID},
						{"Created", rec.CreatedAt.Format(time.RFC3339)},
						{"Kind", string(rec.Kind)},
						{"Network", rec.Network},
						{"Function", rec.Function},
						{"Replayed hash", rec.Hash},
					})
					if rec.Result != nil {
						p.result(rec.Result)
					}
				})
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every recorded simulation.",
			Args:  cobra.NoArgs,
			RunE: runE(func(_ context.Context, _ *cobra.Command, _ []string, s *session) error {
				if err := s.svc.History().Clear(); err != nil {
					return err
				}
				return s.printer.print(map[string]bool{"cleared": true}, func() {
					s.printer.line("History cleared")
				})
			}),
		},
	)
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err = enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version := Version
			if version == "" {
				version = "dev"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(version))
			return err
		},
	}
}
