// Package harness runs receipt helpdesk scenarios written in YAML.
//
// # Scenario Format
//
//	name: receipt_by_event_id
//	description: "A stored receipt is returned by getReceipt"
//	run_id: "run-001"          # optional, fixed for golden traces
//	timeout: 2m                # optional, defaults to 360s
//	given:
//	  - step: receipt
//	    args: { event_id: "evt-${RUN_ID}", status: IO_NOTIFIED }
//	when:
//	  - step: get_receipt
//	    args: { event_id: "evt-${RUN_ID}" }
//	then:
//	  - step: status
//	    args: { code: 200 }
//	  - step: receipt_event_id
//	    args: { id: "evt-${RUN_ID}" }
//	assertions:
//	  - type: trace_order
//	    steps: [receipt, get_receipt]
//	  - type: absent
//	    container: receipts
//	    id: "evt-${RUN_ID}"
//
// String arguments may reference ${RUN_ID}, which expands to the scenario's
// run id so that concurrent runs against a shared environment do not collide.
//
// # Execution
//
// Given, when and then steps run in order and the first failure stops the
// scenario. Cleanup always runs afterwards, with its own deadline, and only
// then are the assertions evaluated. Every step lands in the trace with a
// sequence number from testutil.DeterministicClock, so a scenario run with a
// fixed run id produces the same trace every time and can be compared
// against a golden file.
package harness
