package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gard/internal/config"
	"gard/internal/trace"
)

// setupTracing merges the [trace] section of cfg with the trace flags (flags
// win), attaches the tracer to the command context and returns a cleanup
// function.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(), error) {
	root := cmd.Root()

	traceCfg, err := cfg.TraceOptions()
	if err != nil {
		return nil, nil, err
	}

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	if levelStr != "" {
		if traceCfg.Level, err = trace.ParseLevel(levelStr); err != nil {
			return nil, nil, err
		}
	}
	if traceOutput != "" {
		traceCfg.OutputPath = traceOutput
		// --trace без уровня включает фазы
		if traceCfg.Level == trace.LevelOff && levelStr == "" {
			traceCfg.Level = trace.LevelPhase
		}
	}

	if traceCfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}

	if traceCfg.Mode, err = trace.ParseMode(modeStr); err != nil {
		return nil, nil, err
	}
	traceCfg.RingSize = ringSize
	traceCfg.Heartbeat = heartbeatInterval

	tracer, err := trace.New(traceCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
