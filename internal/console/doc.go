// Package console bridges a terminal widget's key events to a push-based
// interpreter.
//
// An Adapter owns one pending input line. Printable keys are appended and
// echoed, Backspace erases the last character, and Enter hands the line to
// the Evaluator. The evaluator's answer decides whether the primary or the
// secondary prompt comes next.
//
// BeginInteraction writes a banner, installs the adapter as the evaluator's
// output sink and shows the first prompt. EndInteraction (Ctrl-C) and Exit
// (Ctrl-D) put the previous sink back and notify the Host.
//
// The adapter is not safe for concurrent use. The widget's event loop is
// expected to deliver keys one at a time, and the evaluator writes back into
// the adapter from inside Push.
package console
