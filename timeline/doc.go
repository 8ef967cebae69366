// Package timeline provides a scripted timeline engine: declarative,
// immutable step sequences (Definition) replayed by cancellable, restartable
// Runners that emit state-change and log events to subscribed Sinks. The
// engine performs no real work and knows nothing about rendering; it only
// depends on a Scheduler, the capability of invoking a callback after a
// delay.
package timeline
