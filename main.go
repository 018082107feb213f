// Command warehouseplanner starts the warehouse delivery planning server.
//
// It supports four commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "plan" – one-shot: build a world from a scenario and invoke the planner
//  4. "execute" – one-shot: plan and then execute against the world
//
// Flags control host/port, scenario and session directories, the planning
// domain file, the tuning file, the run database, and debug logging.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"warehouseplanner/api"
	"warehouseplanner/planner"
	"warehouseplanner/runstore"
	"warehouseplanner/transport/mcp"
	"warehouseplanner/transport/websocket"
	"warehouseplanner/tuning"
	"warehouseplanner/warehouse/config"
	"warehouseplanner/warehouse/service"
	"warehouseplanner/warehouse/session"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Warehouse Planner Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	root := &cli.Command{
		Name:    "warehouseplanner",
		Usage:   "grid warehouse delivery planning server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "scenario-dir", Value: "scenarios", Usage: "Directory containing scenario files", Sources: cli.EnvVars("SCENARIO_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "work-dir", Value: ".", Usage: "Directory for problem and plan files", Sources: cli.EnvVars("WORK_DIR")},
			&cli.StringFlag{Name: "domain", Value: "domain.pddl", Usage: "Planning domain file", Sources: cli.EnvVars("DOMAIN_FILE")},
			&cli.StringFlag{Name: "tuning", Value: "tuning.yaml", Usage: "Tuning file with runtime knobs", Sources: cli.EnvVars("TUNING_FILE")},
			&cli.StringFlag{Name: "db", Value: "runs.db", Usage: "Run history database", Sources: cli.EnvVars("RUNS_DB")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run MCP stdio server with internal HTTP server",
				Action: runStdioMCP,
			},
			{
				Name:  "plan",
				Usage: "Build a world from a scenario and invoke the planner once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scenario", Usage: "Scenario to plan for (default scenario when empty)"},
				},
				Action: runPlanOnce,
			},
			{
				Name:  "execute",
				Usage: "Plan for a scenario and execute the result",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scenario", Usage: "Scenario to run (default scenario when empty)"},
					&cli.StringFlag{Name: "mode", Value: service.ModeSequential, Usage: "Execution mode: sequential or parallel"},
				},
				Action: runExecuteOnce,
			},
		},
		DefaultCommand: "serve",
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// services bundles everything initializeServices wires together so commands
// can reach the managers behind the service interface.
type services struct {
	warehouse service.WarehouseService
	sessions  *session.Manager
	store     *runstore.Store
	hub       *websocket.Hub
	tuning    tuning.Tuning
}

func (s *services) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("Warning: failed to close run store: %v", err)
		}
	}
}

// initializeServices wires scenario/session managers, the planner, the run
// store, the WebSocket hub, and the warehouse service.
func initializeServices(cmd *cli.Command) (*services, error) {
	knobs, err := tuning.Load(cmd.String("tuning"))
	if err != nil {
		return nil, fmt.Errorf("failed to load tuning: %w", err)
	}

	scenarioManager, err := config.NewManager(cmd.String("scenario-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(cmd.String("sessions-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	solver := planner.NewFastDownward(knobs.PlannerDir)
	solver.Search = knobs.PlannerSearch
	solver.Timeout = knobs.PlannerTimeout()
	solver.WorkDir = cmd.String("work-dir")

	store, err := runstore.Open(cmd.String("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	hub := websocket.NewHub()

	warehouseService := service.NewWarehouseService(sessionManager, scenarioManager, solver, store, service.Options{
		DomainFile: cmd.String("domain"),
		WorkDir:    cmd.String("work-dir"),
		StepDelay:  knobs.StepDelay(),
		Notify: func(sessionID, event string, data any) {
			hub.BroadcastEvent(sessionID, event, data)
		},
	})

	return &services{
		warehouse: warehouseService,
		sessions:  sessionManager,
		store:     store,
		hub:       hub,
		tuning:    knobs,
	}, nil
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp
// proxy endpoint.
func runServe(ctx context.Context, cmd *cli.Command) error {
	log.Printf("Starting %s v%s", AppName, Version)

	svc, err := initializeServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	go svc.hub.Run()
	apiServer := api.NewServer(svc.warehouse, svc.hub)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	// Create MCP client for the /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // plan requests block on the external planner
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go sessionCleanupRoutine(cleanupCtx, svc.sessions, svc.tuning.SessionRetention())
	go runPruneRoutine(cleanupCtx, svc.store, svc.tuning.RunRetention)
	go filesystemSyncRoutine(cleanupCtx, svc.sessions)

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancelCleanup()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := svc.sessions.SaveAllSessions(); err != nil {
		log.Printf("Warning: failed to save sessions on shutdown: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, retention time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := manager.CleanupExpiredSessions(retention)
			if removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// runPruneRoutine keeps the run history bounded
func runPruneRoutine(ctx context.Context, store *runstore.Store, keep int) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := store.Prune(ctx, keep)
			if err != nil {
				log.Printf("Warning: failed to prune run history: %v", err)
				continue
			}
			if pruned > 0 {
				log.Printf("Pruned %d old runs", pruned)
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory when their corresponding
// files are deleted out from under the server.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := 0
			for _, sess := range manager.List() {
				if !manager.PersistedExists(sess.ID) {
					if err := manager.DeleteFromMemory(sess.ID); err == nil {
						pruned++
						log.Printf("Pruned session %s from memory (file deleted)", sess.ID)
					}
				}
			}
			if pruned > 0 {
				log.Printf("Filesystem sync: pruned %d orphaned sessions from memory", pruned)
			}
		}
	}
}

// runStdioMCP runs an MCP stdio server. It tries to reuse an external API at
// http://localhost:8080; if unavailable, it starts a minimal internal HTTP API
// bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	var baseURL string

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		go svc.hub.Run()
		apiServer := api.NewServer(svc.warehouse, svc.hub)
		httpServer := &http.Server{Handler: apiServer}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		// Wait a moment for the server to be ready
		time.Sleep(100 * time.Millisecond)
		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := mcpserver.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runPlanOnce is the one-shot planning command
func runPlanOnce(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	sess, result, err := planForScenario(ctx, svc, cmd.String("scenario"))
	if err != nil {
		return err
	}

	if !result.Success {
		fmt.Printf("No plan available: %s\n", result.Message)
		return nil
	}
	fmt.Printf("Plan for session %s (%d actions, %dms):\n", sess.ID, result.PlanLength, result.DurationMs)
	for i, line := range result.Plan {
		fmt.Printf("%d. %s\n", i+1, line)
	}
	return nil
}

// runExecuteOnce plans and immediately executes
func runExecuteOnce(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	sess, planResult, err := planForScenario(ctx, svc, cmd.String("scenario"))
	if err != nil {
		return err
	}
	if !planResult.Success {
		fmt.Printf("No plan available: %s\n", planResult.Message)
		return nil
	}
	fmt.Printf("Plan found: %d actions (%dms)\n", planResult.PlanLength, planResult.DurationMs)

	execResult, err := svc.warehouse.ExecutePlan(ctx, sess.ID, service.ExecuteRequest{Mode: cmd.String("mode")})
	if err != nil {
		return err
	}

	fmt.Printf("Execution (%s): %s\n", execResult.Mode, execResult.Message)
	for _, rec := range execResult.Records {
		fmt.Printf("  rejected step %d: %s (%s)\n", rec.Idx, rec.Action, rec.Reason)
	}
	if execResult.State != nil {
		for _, row := range execResult.State.Grid {
			fmt.Println(row)
		}
	}
	return nil
}

func planForScenario(ctx context.Context, svc *services, scenario string) (*service.SessionInfo, *service.PlanResult, error) {
	sess, err := svc.warehouse.CreateSession(ctx, scenario)
	if err != nil {
		return nil, nil, err
	}
	result, err := svc.warehouse.Plan(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, result, nil
}
