/*
Package valved provides a remotely-triggerable shutdown signal for streams.

A Trigger and a Valve are created together and share one tripwire. The valve
wraps any number of streams; closing the trigger, once, from anywhere, makes
every wrapped stream report end of stream on its next poll:

	trigger, valve := valved.NewValve()

	events := valved.Wrap(valve, eventStream)
	audits := valved.Wrap(valve, auditStream)

	// elsewhere, when it is time to shut down:
	trigger.Close()

The fire event is checked before the wrapped stream on every poll, so
shutdown latency is bounded by a single in-flight item: a wrapped stream with
data already available still terminates on the poll after the close.

Closing is one-shot and broadcast. All copies of a Valve (and of its
Tripwire) observe the same event, repeated Close calls are no-ops, and firing
with no live streams is harmless. Discarding a Trigger without closing it
never fires the tripwire; the wrapped streams then only end on their own
end-of-data.

Besides the Stream interface, channels and iter.Seq sequences can be guarded
with WrapChan and WrapSeq, a tripwire converts to a context.Context for
context-aware code, and Pump drains a guarded stream into a handler with
retries until the valve fires.
*/
package valved
