// Package usecase holds the application services. Each service depends on
// repository and adapter ports only; wiring happens in cmd/app.
package usecase

import "time"

// nowFunc is swapped in tests that pin the clock.
var nowFunc = time.Now
