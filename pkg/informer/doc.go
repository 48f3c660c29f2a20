/*
Package informer implements SkyShift's client-side object cache and ordered
event dispatcher (spec.md §4.4).

An Informer lists a kind/namespace collection once, then watches it forever
through pkg/client.Watcher, feeding every ADD/UPDATE/DELETE into a local
cache and, from the same goroutine, into the caller's registered callbacks —
so two callbacks never see events for the same object out of order. A
periodic full relist (cache_resync_period, default 1800s) delivers UPDATE for
every listed object the cache already holds, ADD for listed objects it does
not, and DELETE for cached objects missing from the list, the same
tolerance-to-missed-events property a restarted watch gets from a full list.
*/
package informer
