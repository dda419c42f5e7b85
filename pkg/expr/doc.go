// Package expr evaluates CEL (Common Expression Language) expressions
// against lines of kubectl output.
//
// Expressions have access to the variables:
//   - `line` (string): The output line.
//   - `fields` (list<string>): The line split on whitespace.
//   - `record` (dyn): The line decoded as JSON, or null if it is not JSON.
//   - `count` (int): The number of lines seen so far, including this one.
//
// In addition to the standard CEL library and the math, strings and lists
// extensions, the `jsonPath(string, string)` function extracts a value from
// a JSON or YAML document using a YAML path such as "$.status.phase".
package expr
