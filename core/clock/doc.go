// Package clock abstracts time for the reconciliation engine.
//
// Every reconciliation pass stamps winners with the current pass time, so tests
// need full control over what "now" means. The engine takes a Clock and tests
// inject a FakeClock with a fixed or manually advanced time.
package clock
