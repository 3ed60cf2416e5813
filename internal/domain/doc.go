// Package domain defines the scheduling state of a card for one user, the
// review log entry written for every grade, and the ratings and lifecycle
// states that connect them. Types here carry no persistence or transport
// concerns; the SM-2 arithmetic lives in the srs subpackage.
package domain
