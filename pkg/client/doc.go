/*
Package client provides SkyShift's Go client library: a typed HTTP/JSON REST
client over pkg/api's control-plane surface, plus Watch, the reconnecting
watch-stream primitive spec.md §4.3 describes as a "lazy, infinite sequence of
WatchEvents."

# Connection

	c := client.New("http://localhost:8080", client.WithToken(token))
	var cl types.Cluster
	if err := c.Get(ctx, types.KindCluster, "", "cluster-a", &cl); err != nil {
		...
	}

# Watching

	events := c.Watch(types.KindJob, "default").Run(ctx)
	for ev := range events {
		// ev.Type is ADD/UPDATE/DELETE; ev.Object is the raw JSON object.
	}

Watch reconnects automatically on any transport error, backing off from 1s
to a 16s cap (spec.md §4.3); a stream the server closes without error is
reopened at once. It stops cleanly when ctx is cancelled. It never returns a terminal error to the caller —
transport failures are retried forever, matching the "watch never gives up"
semantics the informer layer built on top of it depends on.
*/
package client
