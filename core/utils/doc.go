// Package utils provides small helpers shared by the server packages:
// base-directory path joining and lenient parsing of descriptor values.
package utils
