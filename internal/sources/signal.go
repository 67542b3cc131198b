package sources

import (
	"math/rand"
	"time"

	httpClient "github.com/Alias1177/AgriPredictor/internal/platform/http"
)

// Signal is the outcome of one adapter call: either a value or a failure.
// Adapters recover from upstream problems themselves, so a failed Signal
// means the adapter could not produce even fallback data.
type Signal[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value
func Ok[T any](v T) Signal[T] {
	return Signal[T]{Value: v}
}

// Fail wraps an error
func Fail[T any](err error) Signal[T] {
	return Signal[T]{Err: err}
}

// Failed reports whether the signal carries an error
func (s Signal[T]) Failed() bool {
	return s.Err != nil
}

// Rand is the randomness used for demo fallback data
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// globalRand uses the goroutine-safe top-level functions of math/rand/v2
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.Intn(n) }

// DefaultRand is shared by adapters that are not given their own source
var DefaultRand Rand = globalRand{}

func newClient(timeout time.Duration, rps int) *httpClient.Client {
	return httpClient.NewClient(httpClient.ClientOptions{
		Timeout:        timeout,
		RequestsPerSec: rps,
	})
}
