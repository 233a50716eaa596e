// Package main: nosctl, a command line client for the Nosana Deployment
// Manager. It exercises the full SDK flow: pin a job definition, create a
// deployment, fund its vault, start it and follow its status.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KeesGeerligs/nosana-deployments-go/deployments"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/config"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/model"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/util"
)

var (
	confPath string
	monitor  bool

	logger *zap.Logger
	client *deployments.Client
)

func main() {
	root := &cobra.Command{
		Use:           "nosctl",
		Short:         "Client for the Nosana Deployment Manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown()
		},
	}

	root.PersistentFlags().StringVarP(&confPath, "config", "c", "", "JSON configuration file")
	root.PersistentFlags().BoolVarP(&monitor, "monitor", "m", false, "serve Prometheus metrics on :9100")

	root.AddCommand(pinCmd(), deployCmd(), listCmd(), statusCmd(),
		actionCmd("start"), actionCmd("stop"), actionCmd("archive"),
		tasksCmd(), topupCmd(), balanceCmd(), withdrawCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() error {
	// a missing .env file is fine; OS ENV still applies
	_ = godotenv.Load()

	var err error
	if logger, err = zap.NewProduction(); err != nil {
		return err
	}

	conf, err := config.ExtractConfiguration(confPath)
	if err != nil {
		return err
	}

	if client, err = deployments.New(conf, deployments.WithLogger(logger)); err != nil {
		return err
	}

	logger.Info("client ready",
		zap.String("environment", conf.Environment),
		zap.String("wallet", client.Address()))

	if monitor {
		go func() {
			logger.Info("serving metrics API on :9100")

			h := http.NewServeMux()
			h.Handle("/metrics", promhttp.Handler())

			if err := http.ListenAndServe(":9100", h); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	return nil
}

func teardown() {
	if client != nil {
		client.Close()
	}

	if logger != nil {
		_ = logger.Sync()
	}
}

func pinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <job-definition.json>",
		Short: "Pin a job definition to IPFS and print its content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readJobDefinition(args[0])
			if err != nil {
				return err
			}

			hash, err := client.Pin(cmd.Context(), doc)
			if err != nil {
				return err
			}

			fmt.Println(hash)
			fmt.Println(client.GatewayURL(hash))

			return nil
		},
	}
}

func deployCmd() *cobra.Command {
	var (
		name     string
		market   string
		strategy string
		schedule string
		replicas int
		timeout  int
		sol, nos float64
		start    bool
	)

	cmd := &cobra.Command{
		Use:   "deploy <job-definition.json>",
		Short: "Pin a job definition, create a deployment, fund its vault and optionally start it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			doc, err := readJobDefinition(args[0])
			if err != nil {
				return err
			}

			hash, err := client.Pin(ctx, doc)
			if err != nil {
				return err
			}

			fmt.Println("Pinned job definition:", hash)

			h, err := client.Create(ctx, model.CreateRequest{
				Name:               name,
				Market:             market,
				IPFSDefinitionHash: hash,
				Replicas:           replicas,
				Timeout:            timeout,
				Strategy:           model.Strategy(strategy),
				Schedule:           schedule,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created deployment %s (status %s, vault %s)\n", h.ID, h.Status, h.Deployment.Vault)

			if sol > 0 || nos > 0 {
				vault, err := h.Vault()
				if err != nil {
					return err
				}

				sig, err := vault.Topup(ctx, sol, nos)
				if err != nil {
					return err
				}

				fmt.Println("Vault funded, tx:", util.Shorten(sig))
			}

			if start {
				res, err := h.Start(ctx)
				if err != nil {
					return err
				}

				fmt.Println("Start requested, status:", res.Status)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "deployment name")
	cmd.Flags().StringVar(&market, "market", "", "market public key")
	cmd.Flags().StringVar(&strategy, "strategy", string(model.StrategySimple), "deployment strategy")
	cmd.Flags().StringVar(&schedule, "schedule", "", "6-field cron expression (SCHEDULED strategy only)")
	cmd.Flags().IntVar(&replicas, "replicas", 1, "replica count")
	cmd.Flags().IntVar(&timeout, "timeout", 3600, "timeout in seconds")
	cmd.Flags().Float64Var(&sol, "sol", 0, "SOL to transfer into the vault")
	cmd.Flags().Float64Var(&nos, "nos", 0, "NOS to transfer into the vault")
	cmd.Flags().BoolVar(&start, "start", false, "start the deployment after funding")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("market")

	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all deployments of the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := client.List(cmd.Context())
			if err != nil {
				return err
			}

			for _, h := range hs {
				fmt.Printf("%s  %-18s  replicas:%d  %s\n", h.ID, h.Status, h.Replicas, h.Name)
			}

			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status <deployment-id>",
		Short: "Show a deployment, optionally following status changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			for {
				h, err := client.Get(ctx, args[0])
				if err != nil {
					return err
				}

				out, _ := json.MarshalIndent(h.Deployment, "", "  ")
				fmt.Println(string(out))

				if !follow || h.Status == model.StatusStopped || h.Status == model.StatusError {
					return nil
				}

				time.Sleep(10 * time.Second)
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "poll until the deployment stops")

	return cmd
}

func actionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <deployment-id>",
		Short: "Request the " + action + " transition for a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res model.StatusResponse
				err error
			)

			switch action {
			case "start":
				res, err = client.Start(cmd.Context(), args[0])
			case "stop":
				res, err = client.Stop(cmd.Context(), args[0])
			case "archive":
				res, err = client.Archive(cmd.Context(), args[0])
			}

			if err != nil {
				return err
			}

			fmt.Printf("%s: %s (%s)\n", args[0], res.Status, res.UpdatedAt.Format(time.RFC3339))

			return nil
		},
	}
}

func tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <deployment-id>",
		Short: "List the scheduled tasks of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := client.Tasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, t := range ts {
				fmt.Printf("%-8s due:%s  tx:%s\n", t.Task, t.DueAt.Format(time.RFC3339), util.Shorten(t.Tx))
			}

			return nil
		},
	}
}

func topupCmd() *cobra.Command {
	var sol, nos float64

	cmd := &cobra.Command{
		Use:   "topup <vault-address>",
		Short: "Transfer SOL and/or NOS from the wallet into a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := client.Vault(args[0])
			if err != nil {
				return err
			}

			sig, err := vault.Topup(cmd.Context(), sol, nos)
			if err != nil {
				return err
			}

			fmt.Println("Transfer confirmed, tx:", sig)

			return nil
		},
	}

	cmd.Flags().Float64Var(&sol, "sol", 0, "SOL amount")
	cmd.Flags().Float64Var(&nos, "nos", 0, "NOS amount")

	return cmd
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <vault-address>",
		Short: "Show a vault's SOL and NOS balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := client.Vault(args[0])
			if err != nil {
				return err
			}

			bal, err := vault.Balance(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("SOL: %.9f (%d lamports)\n", float64(bal.Lamports)/1e9, bal.Lamports)
			fmt.Printf("NOS: %.6f (%d units)\n", float64(bal.NosUnits)/1e6, bal.NosUnits)

			return nil
		},
	}
}

func withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <vault-address>",
		Short: "Request a withdrawal transaction for all vault funds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := client.Vault(args[0])
			if err != nil {
				return err
			}

			// nil amounts withdraw everything
			return vault.Withdraw(cmd.Context(), nil, nil)
		},
	}
}

func readJobDefinition(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("job definition %s: %w", path, err)
	}

	return doc, nil
}
