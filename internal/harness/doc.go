// Package harness runs YAML scenarios against a recall backend and checks
// the recorded calls, visit counters and replay output they leave behind.
//
// # Scenario Format
//
//	name: round_trip
//	description: "Stored values read back unchanged"
//	ttl: 10s                 # page cache TTL (optional)
//	pages:                   # content served by the scenario fetcher
//	  http://example.test/: "<title>Example</title>"
//	flow:
//	  - store: bar           # key-1
//	  - store: 123           # key-2
//	  - get: key-1
//	    expect: bar
//	  - get: key-2
//	    as: int
//	    expect: 123
//	  - get: nonexistent_key
//	    missing: true
//	  - fetch: http://example.test/
//	  - advance: 11s
//	assertions:
//	  - type: call_count
//	    method: Cache.store
//	    count: 2
//	  - type: fetch_count
//	    url: http://example.test/
//	    count: 1
//
// Keys are generated as "key-1", "key-2", ... in store order so scenarios
// and golden files stay deterministic. URLs missing from pages fail with
// an upstream 404.
//
// # Assertion Types
//
//   - call_count: the recorded invocation counter of a method
//   - history_len: the number of replayable calls of a method
//   - visits: the visit counter of a URL
//   - fetch_count: how many times the fetcher was actually invoked for a URL
//
// # Golden Files
//
// RunWithGolden compares a scenario transcript (one line per step followed
// by the Cache.store replay) against testdata/golden/<name>.golden.
package harness
