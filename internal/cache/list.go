// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package cache

// node is an element of the storedAt-ordered list.
// head.next is the most recently stored entry, tail.prev the oldest.
type node struct {
	entry Entry
	prev  *node
	next  *node
}

// storeList is a doubly-linked list with sentinel head and tail nodes.
// It is not safe for concurrent use; ResponseCache guards it.
type storeList struct {
	head *node
	tail *node
}

func newStoreList() storeList {
	l := storeList{head: &node{}, tail: &node{}}
	l.head.next = l.tail
	l.tail.prev = l.head
	return l
}

func (l *storeList) pushFront(n *node) {
	n.prev = l.head
	n.next = l.head.next
	l.head.next.prev = n
	l.head.next = n
}

func (l *storeList) moveToFront(n *node) {
	l.unlink(n)
	l.pushFront(n)
}

func (l *storeList) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// oldest returns the tail entry or nil when the list is empty.
func (l *storeList) oldest() *node {
	if l.tail.prev == l.head {
		return nil
	}
	return l.tail.prev
}

func (l *storeList) reset() {
	l.head.next = l.tail
	l.tail.prev = l.head
}
