// Package harness runs YAML scenarios against a block graph.
//
// A scenario embeds or references a blueprint, then drives the built graph
// through a list of steps (commit, set, connect, post, ...) and finally checks
// assertions against the settled graph, its dot dump and the journal of
// action deliveries.
//
// Example:
//
//	name: rx-decimation
//	description: decimation change reaches the streamer
//	blueprint_file: ../../blueprint/testdata/rx_chain.yaml
//	steps:
//	  - op: commit
//	  - op: set
//	    node: ddc
//	    key: decim
//	    value: 10
//	assertions:
//	  - type: property_equals
//	    node: rx
//	    key: samp_rate@in:0
//	    value: 20000000
//
// Every run uses a fresh in-memory journal and scripted action ids, so two
// runs of the same scenario produce identical results.
package harness
