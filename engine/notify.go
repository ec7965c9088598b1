/*
notify.go - Fire-and-forget notification contract

PURPOSE:
  The engine signals user-visible transitions (confirmation, reward
  available, event live) to an external delivery system. Delivery failure
  must never roll back the state transition that triggered it, so the
  contract has no error return.

SEE ALSO:
  - confirm.go: Notifies on successful confirmation
  - event.go: Notifies on activation and reward grants
*/
package engine

import "log"

// Notifier delivers a user-visible message. Implementations must not
// block the caller on delivery; failures are the implementation's to log.
type Notifier interface {
	Notify(user UserID, message string)
}

// LogNotifier writes notifications to the process log. The default
// collaborator when no delivery system is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(user UserID, message string) {
	log.Printf("[Notify] user=%s: %s", user, message)
}

// NopNotifier drops notifications. Useful in tests that do not assert
// on delivery.
type NopNotifier struct{}

func (NopNotifier) Notify(UserID, string) {}
