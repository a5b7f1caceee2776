// Package logger provides the structured logging interface used across
// tmscraper.
//
// It wraps zerolog with a small Logger interface supporting levels,
// attached fields and a colored console writer on stderr. Output can be
// redirected to a file, which the interactive wizard does so log lines do
// not tear the terminal UI.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "downloader")
//	log.InfoWithFields("Batch completed", map[string]interface{}{
//	    "class": "cat",
//	    "saved": 31,
//	})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to drop them.
package logger
