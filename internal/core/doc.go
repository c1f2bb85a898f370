// Package core provides the conversion service shared by the HTTP server and
// the command-line tool.
//
// It sits between the hosts and the csvparse/render packages and adds what a
// long-running service needs: input size limits, a concurrency limiter,
// Prometheus metrics, persisted snippets and user-facing error messages.
//
// # Conversions
//
// [Service.Convert] validates the requested format, takes a slot from the
// [ConversionLimiter] and runs a render.Binding whose sink optionally saves
// the result as a [Snippet]:
//
//	svc := core.NewService(cfg.Convert, store, core.NewMetrics(prometheus.DefaultRegisterer))
//	res, err := svc.Convert(ctx, core.ConvertRequest{
//	    Input:   "Name,Qty\nApple,3",
//	    Format:  "block",
//	    Options: render.Options{HasHeader: true, HasStripes: true},
//	})
//
// # Snippet Storage
//
// [MemoryStore] keeps a bounded, newest-first history and is used when no
// database is configured. [PostgresStore] keeps snippets in PostgreSQL through
// a pgx pool; call [PostgresStore.EnsureSchema] once at startup.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - CNV001-CNV003: Conversion errors (no data, unknown format, busy)
//   - FILE001, FILE004: Input errors (too large, missing)
//   - SNP001-SNP002: Snippet errors (not found, invalid ID)
//   - DB004-DB006: Database errors
//   - REQ001, UPL004-UPL005, RATE001: Request errors
package core
