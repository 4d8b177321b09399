// Command queryserverd is the launch glue of spec.md §4.5/§6: it parses
// the recognized configuration options, starts the supervisor, emits
// the startup output an embedding host reads to discover the endpoint
// and password, and installs the signal policy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codefionn/queryserverd/internal/config"
	"github.com/codefionn/queryserverd/internal/debugsrv"
	"github.com/codefionn/queryserverd/internal/engine"
	"github.com/codefionn/queryserverd/internal/listener"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/metrics"
	"github.com/codefionn/queryserverd/internal/secret"
	"github.com/codefionn/queryserverd/internal/securemem"
)

var (
	flagPort                    int
	flagUnixDomainSocket        string
	flagPassword                string
	flagQueryTimeout            int
	flagPendingConnections      int
	flagServerThread            string
	flagWriteConnectionValues   bool
	flagWriteOutputToFile       string
	flagIgnoreSigInt            bool
	flagHaltOnConnectionFailure bool
	flagLogLevel                string
	flagLogPath                 string
	flagDebugListenAddr         string
)

var rootCmd = &cobra.Command{
	Use:   "queryserverd",
	Short: "Local password-authenticated query server for an embedded logic engine",
	Long: `queryserverd exposes a logic-programming engine as a local,
single-tenant, password-authenticated query server reachable over a
loopback TCP port or a filesystem-scoped local socket. Each connection
offers an interactive session: submit goals as textual terms, receive
structured bindings as JSON, run queries synchronously or streamed
asynchronously, cancel in flight, and close cleanly.`,
	RunE: runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "queryserverd: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	defaults := config.DefaultConfig()

	rootCmd.Flags().IntVar(&flagPort, "port", defaults.Port, "TCP loopback port; 0 lets the kernel pick")
	rootCmd.Flags().StringVar(&flagUnixDomainSocket, "unix-domain-socket", "", "Absolute path for a local-socket endpoint instead of TCP")
	rootCmd.Flags().StringVar(&flagPassword, "password", "", "Shared secret; generated randomly if unset")
	rootCmd.Flags().IntVar(&flagQueryTimeout, "query-timeout", defaults.QueryTimeout, "Query timeout in seconds recorded in the config (-1 means unbounded); each run/run_async command's own timeout is what applies")
	rootCmd.Flags().IntVar(&flagPendingConnections, "pending-connections", defaults.PendingConnections, "Accept backlog recorded in the config; the listener uses the OS default backlog")
	rootCmd.Flags().StringVar(&flagServerThread, "server-thread", "queryserverd", "Name/id used as the supervisor's log prefix")
	rootCmd.Flags().BoolVar(&flagWriteConnectionValues, "write-connection-values", defaults.WriteConnectionValues, "Print the endpoint and password to standard output on startup")
	rootCmd.Flags().StringVar(&flagWriteOutputToFile, "write-output-to-file", "", "Redirect standard output/error to this path")
	rootCmd.Flags().BoolVar(&flagIgnoreSigInt, "ignore-sig-int", false, "Ignore SIGINT so a client-side debugger cannot suspend the server")
	rootCmd.Flags().BoolVar(&flagHaltOnConnectionFailure, "halt-on-connection-failure", defaults.HaltOnConnectionFailure, "Terminate the process on an abnormal connection loss (embedded mode)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", defaults.LogLevel, "debug, info, warn, error, or none")
	rootCmd.Flags().StringVar(&flagLogPath, "log-path", defaults.LogPath, "Log file path")
	rootCmd.Flags().StringVar(&flagDebugListenAddr, "debug-listen-addr", "", "Loopback address for the optional /healthz and /metrics listener, e.g. 127.0.0.1:9090")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	cfg.Port = flagPort
	cfg.UnixDomainSocket = flagUnixDomainSocket
	cfg.Password = flagPassword
	cfg.QueryTimeout = flagQueryTimeout
	cfg.PendingConnections = flagPendingConnections
	cfg.ServerThread = flagServerThread
	cfg.WriteConnectionValues = flagWriteConnectionValues
	cfg.WriteOutputToFile = flagWriteOutputToFile
	cfg.IgnoreSigInt = flagIgnoreSigInt
	cfg.HaltOnConnectionFailure = flagHaltOnConnectionFailure
	cfg.LogLevel = flagLogLevel
	cfg.LogPath = flagLogPath
	cfg.DebugListenAddr = flagDebugListenAddr

	if cfg.WriteOutputToFile != "" {
		f, err := os.OpenFile(cfg.WriteOutputToFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open write-output-to-file: %w", err)
		}
		defer f.Close()
		os.Stdout = f
		os.Stderr = f
	}

	log, err := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogPath, cfg.ServerThread)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	var password *secret.Password
	if cfg.Password != "" {
		password = secret.New(cfg.Password)
	} else {
		password, err = secret.Generate()
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
	}
	defer securemem.Cleanup()
	defer password.Destroy()

	m := metrics.New()
	eng := engine.NewBuiltin()

	sup, err := listener.New(cfg, password, eng, log, m)
	if err != nil {
		return fmt.Errorf("start listener: %w", err)
	}

	if cfg.WriteConnectionValues {
		if err := sup.WriteConnectionValues(os.Stdout); err != nil {
			return fmt.Errorf("write connection values: %w", err)
		}
	}

	if cfg.IgnoreSigInt {
		signal.Ignore(syscall.SIGINT)
	} else {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			_ = sup.Stop()
		}()
	}

	var dbg *debugsrv.Server
	if cfg.DebugListenAddr != "" {
		dbg = debugsrv.New(cfg.DebugListenAddr, m, sup.ActorSystem(), log)
		go func() {
			if err := dbg.ListenAndServe(); err != nil {
				log.Error("debug listener: %v", err)
			}
		}()
	}

	exitCode := sup.Run(cfg.RunServerOnThread)
	if dbg != nil {
		_ = dbg.Shutdown(context.Background())
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
