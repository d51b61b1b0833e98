package health

import (
	"sort"
	"sync"
	"time"

	"github.com/ONSdigital/go-ns/log"
)

// TrackTime logs the time taken by the method. Usage - as the first line in a method: defer health.TrackTime(time.Now(), "methodName")
func TrackTime(start time.Time, name string) {
	elapsed := time.Since(start)
	log.Debug("timing", log.Data{"method": name, "elapsed": elapsed.String()})
}

var (
	timingMu      sync.Mutex
	elapsedMap    = make(map[string]time.Duration)
	invocationMap = make(map[string]int64)
)

// RecordTime accumulates the time taken by the method, to be reported by LogTime.
// Usage - as the first line in a method: defer health.RecordTime(time.Now(), "methodName")
func RecordTime(start time.Time, name string) {
	elapsed := time.Since(start)

	timingMu.Lock()
	defer timingMu.Unlock()
	elapsedMap[name] += elapsed
	invocationMap[name]++
}

// LogTime logs the accumulated times recorded by RecordTime, then resets them
func LogTime() {
	timingMu.Lock()
	defer timingMu.Unlock()

	names := make([]string, 0, len(invocationMap))
	for name := range invocationMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Info("accumulated timing", log.Data{
			"method":      name,
			"elapsed":     elapsedMap[name].String(),
			"invocations": invocationMap[name],
		})
	}
	elapsedMap = make(map[string]time.Duration)
	invocationMap = make(map[string]int64)
}

// Invocations returns the number of calls recorded for name since the last LogTime
func Invocations(name string) int64 {
	timingMu.Lock()
	defer timingMu.Unlock()
	return invocationMap[name]
}
