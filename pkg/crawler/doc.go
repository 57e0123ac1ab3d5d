// Package crawler is the bounded concurrent crawl engine.
//
// A run has two phases:
//
// The FollowerCrawler starts from a seed identifier and expands followers on
// a fixed number of workers. Each completed expansion is merged into the
// frontier and free worker slots are refilled immediately. The phase ends
// when the discovered set reaches its bound or when the frontier is empty and
// nothing is in flight.
//
// The FeedHarvester then fetches the feed of every discovered identifier
// exactly once on its own pool and merges the posts by URI into a PostStore.
//
// Failed calls are logged, counted and skipped. Nothing is retried.
//
// The Runner ties both phases to a storage.Sink:
//
//	follow := crawler.NewFollowerCrawler(src, crawler.WithMaxUsers(1000), crawler.WithWorkers(20))
//	harvest := crawler.NewFeedHarvester(src, crawler.WithWorkers(10))
//	runner := crawler.NewRunner(follow, harvest, sink)
//
//	summary, err := runner.Run(ctx, "alice.bsky.social")
package crawler
