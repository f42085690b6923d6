/*

Process of compilation

Program Text (+ imported files) ->
	front ->
Environment of Functions (ast) ->
	analyze ->
Entry Dependencies ->
	check ->
Checked Program ->
	back ->
JavaScript Text

Every stage reports to one diag.Sink.
The driver stops between stages once anything is reported.

*/
package compiler
