package cli

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"

	"github.com/prodflowhq/prodflow/agent"
	blobfs "github.com/prodflowhq/prodflow/blob/fs"
	"github.com/prodflowhq/prodflow/breakpoint"
	"github.com/prodflowhq/prodflow/breakpoint/redisbus"
	"github.com/prodflowhq/prodflow/internal/config"
	"github.com/prodflowhq/prodflow/observe"
	observeotel "github.com/prodflowhq/prodflow/observe/otel"
	"github.com/prodflowhq/prodflow/providers/anthropic"
	"github.com/prodflowhq/prodflow/providers/gemini"
	"github.com/prodflowhq/prodflow/state"
	statesqlite "github.com/prodflowhq/prodflow/state/sqlite"
	"github.com/prodflowhq/prodflow/step"
	"github.com/prodflowhq/prodflow/workflow"
)

// runtime bundles everything a command needs to drive a run.
type runtime struct {
	runner *workflow.Runner
	store  state.Store
	close  func()
}

func buildRuntime(ctx context.Context, settings config.Settings, detach bool) (*runtime, error) {
	invoker, err := buildInvoker(ctx, settings)
	if err != nil {
		return nil, err
	}

	blobs, err := blobfs.New(settings.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	store, err := statesqlite.New(settings.StateDB)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}

	// Runtime events always reach the process log; OTel spans are added
	// when enabled. The fan-out runs off the runner's hot path.
	sinks := []observe.Sink{logSink()}
	if settings.OTelEnabled {
		sinks = append(sinks, observeotel.NewSink(otel.GetTracerProvider()))
	}
	async := observe.NewAsyncSink(observe.NewMultiSink(sinks...), 0)
	var observer observe.Sink = async

	var controller breakpoint.Controller
	var closeController func()
	switch {
	case detach:
		controller = breakpoint.Detached{}
	case settings.RedisAddr != "":
		bus, err := redisbus.New(settings.RedisAddr, redisbus.WithDB(settings.RedisDB))
		if err != nil {
			async.Close()
			_ = store.Close()
			return nil, fmt.Errorf("breakpoint bus: %w", err)
		}
		controller = bus
		closeController = func() { _ = bus.Close() }
	default:
		controller = newConsoleController()
	}

	executor, err := step.NewExecutor(invoker, blobs, step.WithObserver(observer))
	if err != nil {
		async.Close()
		_ = store.Close()
		return nil, err
	}
	runner, err := workflow.NewRunner(executor,
		workflow.WithStore(store),
		workflow.WithController(controller),
		workflow.WithObserver(observer),
	)
	if err != nil {
		async.Close()
		_ = store.Close()
		return nil, err
	}

	return &runtime{
		runner: runner,
		store:  store,
		close: func() {
			if closeController != nil {
				closeController()
			}
			async.Close()
			_ = store.Close()
		},
	}, nil
}

func openStore(settings config.Settings) (state.Store, error) {
	store, err := statesqlite.New(settings.StateDB)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	return store, nil
}

// buildInvoker resolves the provider through the agent registry,
// constructing and registering it on first use.
func buildInvoker(ctx context.Context, settings config.Settings) (agent.Invoker, error) {
	if invoker, ok := agent.Get(settings.Provider); ok {
		return invoker, nil
	}

	var (
		invoker agent.Invoker
		err     error
	)
	switch settings.Provider {
	case "gemini":
		opts := []gemini.Option{}
		if settings.Model != "" {
			opts = append(opts, gemini.WithModel(settings.Model))
		}
		invoker, err = gemini.New(ctx, settings.GeminiAPIKey, opts...)
	case "anthropic":
		opts := []anthropic.Option{}
		if settings.Model != "" {
			opts = append(opts, anthropic.WithModel(settings.Model))
		}
		invoker, err = anthropic.New(settings.AnthropicKey, opts...)
	case "scripted":
		// Dry-run provider: every step fails for lack of a scripted
		// response, which still exercises persistence and state paths.
		invoker = agent.NewScripted()
	default:
		return nil, fmt.Errorf("unknown provider %q (gemini, anthropic)", settings.Provider)
	}
	if err != nil {
		return nil, err
	}
	if err := agent.Register(invoker); err != nil {
		return nil, err
	}
	return invoker, nil
}

// logSink writes every runtime event to the process log.
func logSink() observe.Sink {
	return observe.SinkFunc(func(ctx context.Context, event observe.Event) error {
		_ = ctx
		if event.Error != "" {
			log.Printf("%s %s %s run=%s error=%s", event.Kind, event.Status, event.Name, event.RunID, event.Error)
			return nil
		}
		log.Printf("%s %s %s run=%s", event.Kind, event.Status, event.Name, event.RunID)
		return nil
	})
}
