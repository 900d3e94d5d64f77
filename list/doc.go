// Package list iterates doubly linked lists that live in firmware memory.
//
// The list head is a bare Link that carries no payload. Each following
// record begins with a Link; iteration ends when Next is null. Records are
// copied out on each step and the cursor never frees or mutates the list.
// Releasing the list is the job of whatever service produced it.
package list
