// Package gait defines the contact-state map consumed by the balance controller.
//
// A [Map] tells the controller, for every configured leg, whether the foot is
// in [Stance] (bearing load) or [Swing] (lifted). The scheduler that produces
// the map lives outside this module; [Schedule] is only a scripted source of
// maps for simulations and tests.
package gait
