// Package eventsink publishes family-monitoring events.
//
// Events are appended to a per-family NATS subject
// (<prefix>.<familyID>.events). A sink only accepts an event when the
// signed-in identity matches the enrolled family member, mirroring the
// access rule of the family backend.
package eventsink
