// Package resilience retries operations that may fail for a short while,
// such as opening a database file that another process holds locked.
//
//	db, err := resilience.Retry(ctx, resilience.RetryConfig{MaxAttempts: 3}, func() (*gorm.DB, error) {
//	    return gorm.Open(sqlite.Open(dsn), cfg)
//	})
//
// Wrap an error with Permanent to stop retrying immediately.
package resilience
