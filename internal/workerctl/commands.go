package workerctl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// Config carries the persistent CLI options.
type Config struct {
	Server  string
	Timeout time.Duration
}

func envServer() string {
	if v := os.Getenv("LLMWORKER_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// BuildRootCmd constructs the Cobra command tree.
func BuildRootCmd() *cobra.Command {
	cfg := &Config{Server: envServer(), Timeout: 30 * time.Second}

	root := &cobra.Command{
		Use:           "workerctl",
		Short:         "Client for the llm-worker daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Server, "server", cfg.Server, "Worker base URL (defaults LLMWORKER_SERVER or http://localhost:8080)")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for non-streaming calls")

	client := func() *Client { return NewClient(cfg.Server, cfg.Timeout) }

	// signalCtx cancels on Ctrl+C so a streaming generation can be aborted
	// from the terminal.
	signalCtx := func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	}

	checkCmd := &cobra.Command{Use: "check", Short: "Probe backend availability", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalCtx()
		defer cancel()
		return client().Do(ctx, types.Request{Type: types.ReqCheck}, func(e event) error {
			if e.Status == types.StatusError {
				return fmt.Errorf("%s", errorOf(e))
			}
			var r types.CheckResult
			if err := json.Unmarshal(e.Data, &r); err != nil {
				return err
			}
			if r.Available {
				fmt.Printf("available: %s\n", r.Adapter)
			} else {
				fmt.Printf("unavailable: %s\n", r.Error)
			}
			return nil
		})
	}}

	modelsCmd := &cobra.Command{Use: "models", Short: "List model presets", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalCtx()
		defer cancel()
		payload, err := client().GetModels(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(payload.Models))
		for n := range payload.Models {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			d := payload.Models[n]
			fmt.Printf("%-16s %-32s %s\n", n, d.ID, d.Description)
		}
		return nil
	}}

	statusCmd := &cobra.Command{Use: "status", Short: "Show daemon status", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalCtx()
		defer cancel()
		st, err := client().GetStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("state: %s\n", st.State)
		if st.Model != nil {
			fmt.Printf("model: %s\n", st.Model.ID)
		}
		fmt.Printf("sessions: %d  inflight: %d  uptime: %ds\n", st.Sessions, st.Inflight, st.UptimeSeconds)
		return nil
	}}

	initCmd := &cobra.Command{
		Use:     "init [preset]",
		Short:   "Load a model (preset name, or default when omitted)",
		Example: "  workerctl init\n  workerctl init smollm2-360m",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalCtx()
			defer cancel()
			var data json.RawMessage
			if len(args) == 1 {
				b, err := json.Marshal(map[string]string{"model": args[0]})
				if err != nil {
					return err
				}
				data = b
			}
			return client().Do(ctx, types.Request{Type: types.ReqInitialize, Data: data}, func(e event) error {
				switch e.Status {
				case types.StatusLoading:
					fmt.Println("loading...")
				case types.StatusProgress:
					var p types.ProgressPayload
					if json.Unmarshal(e.Data, &p) == nil {
						fmt.Printf("\r%3.0f%% %s", p.Percentage, p.ModelName)
					}
				case types.StatusReady:
					var p types.ReadyPayload
					if json.Unmarshal(e.Data, &p) == nil {
						fmt.Printf("\nready: %s\n", p.ModelInfo.ID)
					}
				case types.StatusError:
					fmt.Println()
					return fmt.Errorf("%s", errorOf(e))
				}
				return nil
			})
		},
	}

	var chatSession, chatSystem string
	chatCmd := &cobra.Command{
		Use:     "chat <message>",
		Short:   "Send one chat turn and stream the reply",
		Example: "  workerctl chat \"hello\"\n  workerctl chat --session work \"summarize this\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalCtx()
			defer cancel()
			payload := types.ChatRequest{Message: args[0], SessionID: chatSession, SystemMessage: chatSystem}
			b, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			return client().Do(ctx, types.Request{Type: types.ReqGenerateChat, Data: b}, streamRenderer())
		},
	}
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session id (default session when empty)")
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "System message for a new session")

	var singleSystem string
	singleCmd := &cobra.Command{
		Use:   "single <message>",
		Short: "One-shot generation without touching any session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalCtx()
			defer cancel()
			payload := types.SingleRequest{Message: args[0], SystemMessage: singleSystem}
			b, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			return client().Do(ctx, types.Request{Type: types.ReqGenerateSingle, Data: b}, streamRenderer())
		},
	}
	singleCmd.Flags().StringVar(&singleSystem, "system", "", "Optional system message")

	interruptCmd := &cobra.Command{
		Use:   "interrupt [request-id]",
		Short: "Cancel an in-flight generation (the most recent when no id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalCtx()
			defer cancel()
			var data json.RawMessage
			if len(args) == 1 {
				b, err := json.Marshal(map[string]string{"requestId": args[0]})
				if err != nil {
					return err
				}
				data = b
			}
			return client().Do(ctx, types.Request{Type: types.ReqInterrupt, Data: data}, func(e event) error {
				if e.Status == types.StatusError {
					return fmt.Errorf("%s", errorOf(e))
				}
				var p types.InterruptPayload
				if err := json.Unmarshal(e.Data, &p); err != nil {
					return err
				}
				if p.Interrupted {
					fmt.Println("interrupted")
				} else {
					fmt.Println("nothing in flight")
				}
				return nil
			})
		},
	}

	var sessionID string
	sessionCmd := &cobra.Command{Use: "session", Short: "Inspect or clear chat sessions", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("session requires a subcommand: info|clear")
	}}
	sessionCmd.PersistentFlags().StringVar(&sessionID, "id", "", "Session id (default session when empty)")
	sessionInfo := &cobra.Command{Use: "info", Short: "Show session metadata", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalCtx()
		defer cancel()
		data, err := json.Marshal(types.SessionRequest{SessionID: sessionID})
		if err != nil {
			return err
		}
		return client().Do(ctx, types.Request{Type: types.ReqGetSessionInfo, Data: data}, func(e event) error {
			if e.Status == types.StatusError {
				return fmt.Errorf("%s", errorOf(e))
			}
			var p types.SessionInfoPayload
			if err := json.Unmarshal(e.Data, &p); err != nil {
				return err
			}
			if !p.Exists {
				fmt.Printf("session %s: not found\n", p.SessionID)
				return nil
			}
			fmt.Printf("session %s: %d messages, cache=%v, created %s\n",
				p.SessionID, p.MessageCount, p.HasCache,
				time.UnixMilli(p.CreatedAt).Format(time.RFC3339))
			return nil
		})
	}}
	sessionClear := &cobra.Command{Use: "clear", Short: "Delete a session and its cache", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalCtx()
		defer cancel()
		data, err := json.Marshal(types.SessionRequest{SessionID: sessionID})
		if err != nil {
			return err
		}
		return client().Do(ctx, types.Request{Type: types.ReqClearSession, Data: data}, func(e event) error {
			if e.Status == types.StatusError {
				return fmt.Errorf("%s", errorOf(e))
			}
			var p types.ClearPayload
			if err := json.Unmarshal(e.Data, &p); err != nil {
				return err
			}
			fmt.Printf("session %s: cleared=%v\n", p.SessionID, p.Cleared)
			return nil
		})
	}}
	sessionCmd.AddCommand(sessionInfo, sessionClear)

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})

	root.AddCommand(checkCmd, modelsCmd, statusCmd, initCmd, chatCmd, singleCmd, interruptCmd, sessionCmd, completionCmd)
	return root
}

// streamRenderer prints tokens as they arrive and a throughput summary at
// the end. Shared by chat and single.
func streamRenderer() func(event) error {
	return func(e event) error {
		switch e.Status {
		case types.StatusStreaming:
			var p types.StreamingPayload
			if json.Unmarshal(e.Data, &p) == nil {
				fmt.Print(p.Token)
			}
		case types.StatusComplete:
			var p types.SingleComplete
			if json.Unmarshal(e.Data, &p) == nil {
				fmt.Printf("\n[%.1f tok/s]\n", p.TokensPerSecond)
			}
		case types.StatusError:
			fmt.Println()
			return fmt.Errorf("%s", errorOf(e))
		}
		return nil
	}
}
