// Command fusiondemo is a small standalone program exercising the
// synchronization engine end to end: it builds a few hooks, fuses two of
// them, submits values through the coordinator, and prints the resulting
// diagnostics. It exists as a smoke-test harness and as the worked example
// referenced by the package doc comments elsewhere in this module.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"fusioncore/internal/diagnostics/memory"
	"fusioncore/internal/engine"
	fsync "fusioncore/pkg/sync"
)

func main() {
	sessionID := uuid.New()
	logger := engine.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)).With("session", sessionID.String()))

	coord := fsync.NewCoordinator(
		fsync.WithLogger(logger),
		fsync.WithMetricsRecorder(engine.NewExpvarMetricsRecorder("")),
	)

	ctx := context.Background()

	temperatureC := coord.NewFloatingHook(20.0, true)
	temperatureF := coord.NewFloatingHook(68.0, true)

	temperatureF.AddListener(func(current, previous any) {
		fmt.Printf("fahrenheit changed: %v -> %v\n", previous, current)
	})

	if err := temperatureC.Join(ctx, temperatureF, false); err != nil {
		fmt.Fprintln(os.Stderr, "join failed:", err)
		os.Exit(1)
	}

	if _, err := temperatureC.Submit(ctx, 25.0, fsync.NormalSubmission); err != nil {
		fmt.Fprintln(os.Stderr, "submit failed:", err)
		os.Exit(1)
	}

	sink := memory.New(100)
	if err := sink.Record(ctx, coord.Snapshots()); err != nil {
		fmt.Fprintln(os.Stderr, "diagnostics record failed:", err)
		os.Exit(1)
	}

	for _, row := range sink.Rows() {
		fmt.Printf("cell %d (external %s): current=%s previous=%s members=%d\n",
			row.ID, row.ExternalID, row.Current, row.Previous, row.MemberCount)
	}
}
