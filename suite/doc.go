// Package suite runs named sequences of test steps against one device.
//
// A Suite is an ordered list of Steps, each carrying the instrument parameters, an
// optional inclusive expected range for the measurement, and a critical flag. A failed
// critical step stops the remaining steps of the suite. Setup and teardown commands are
// dispatched to a CommandHook; teardown always runs, even when setup failed, the suite
// was cancelled, or a step panicked.
//
// Suites can be defined in code or loaded from YAML or JSON documents:
//
//	name: Basic Electrical Tests
//	description: Basic electrical parameter validation
//	setup_commands: [power_on, initialize]
//	teardown_commands: [power_off]
//	tests:
//	  - name: Voltage Test
//	    parameters: [voltage, "5.0"]
//	    expected_range: [4.8, 5.2]
//	    critical: true
//
// The Runner keeps a registry of suites by name and a lifetime log of every result it
// produced.
package suite
