// Code generated by hand. DO NOT EDIT.

package comments

// The comments of a generated file are ignored whatever their length is, even when they are too long.
