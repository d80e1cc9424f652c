// Package harness runs scripted signup sessions against the real engine.
//
// A scenario types into the form, taps submit and answers the engine's
// collaborators (username lookups, signup calls, prompts) in whatever
// order it likes, so races such as a stale lookup answering after a newer
// one are reproducible. Each step is drained to quiescence before the
// next starts.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: signup_succeeds
//	description: "A valid form signs in after the prompt is acknowledged"
//	policy: |
//	  password_min_length: 6
//	steps:
//	  - set: {field: username, value: alice}
//	  - resolve: {target: username, outcome: available}
//	  - set: {field: password, value: secret1}
//	  - set: {field: repeated_password, value: secret1}
//	  - submit: true
//	  - resolve: {target: signup, outcome: success}
//	  - acknowledge: true
//	assertions:
//	  - type: final
//	    values: {signed_in: "true", signing_in: "false"}
//	  - type: prompts
//	    messages: ["Signed in."]
//
// Each step sets exactly one of set, submit, resolve, acknowledge or
// dismiss. resolve settles the latest pending call of its target unless
// which: oldest is given.
//
// # Assertion Types
//
//   - final: outputs hold the given values after the last step
//   - sequence: a signal emitted exactly the given values, in order
//   - count: a signal emitted a value exactly N times
//   - never: a signal never emitted a value
//   - prompts: the user was shown exactly the given messages
//   - calls: a collaborator was called exactly N times
//
// # Golden Files
//
// Render turns a run into text: the value of every output after setup and
// after each step. Golden files hold that text.
package harness
