// Package scraper drives a scrape run over the configured classes.
//
// For every class, in order, the Scraper prepares the class folder under
// the output root, asks the candidate source for images matching the
// class query and hands the candidates to the batch downloader. Classes
// are processed strictly one after another; the next class starts only
// after the previous batch has settled.
//
// A search failure is reported through the OnLog hook and the class
// completes with an empty batch. Failing to create a class folder stops
// the run.
//
// Usage:
//
//	s, err := scraper.NewFromConfig(cfg, keys, log)
//	if err != nil {
//	    return err
//	}
//	report, err := s.Run(ctx, sess.Scrape.ClassList(), scraper.Hooks{
//	    OnLog: func(c session.ClassConfig, msg string) { fmt.Println(msg) },
//	})
package scraper
