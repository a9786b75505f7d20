// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Change reports activity on one entry of the watched directory. An
// empty Name means the kernel queue overflowed and any file may have
// changed.
type Change struct {
	Name string
}

// Notifier delivers directory change hints to a Tailer. Hints may be
// duplicated, coalesced, or reordered; the tailer treats each one as a
// prompt to re-check state rather than as a fact.
type Notifier interface {
	Changes() <-chan Change
}

// watchMask covers appends (IN_MODIFY, IN_CLOSE_WRITE) and new files
// (IN_CREATE, IN_MOVED_TO).
const watchMask = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_CREATE | unix.IN_MOVED_TO

// Watcher is an inotify watch on a single directory.
type Watcher struct {
	changes   chan Change
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// WatchDirectory installs an inotify watch on directory. Create the
// watcher before scanning the directory so that a file appearing
// between the scan and the watch is not missed.
func WatchDirectory(directory string) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	if _, err := unix.InotifyAddWatch(fd, directory, watchMask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", directory, err)
	}

	watcher := &Watcher{
		changes: make(chan Change, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.readLoop(fd)
	return watcher, nil
}

// Changes returns the channel of directory changes. It is closed when
// the watcher stops, either through Close or a fatal inotify error.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Close stops the watcher and releases the inotify descriptor. Safe to
// call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

// readLoop polls the inotify fd with a 100ms timeout so the goroutine
// notices Close without a dedicated wakeup descriptor.
func (w *Watcher) readLoop(fd int) {
	defer close(w.done)
	defer close(w.changes)
	defer unix.Close(fd)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}

		for _, change := range parseEvents(buffer[:bytesRead]) {
			select {
			case w.changes <- change:
			case <-w.stop:
				return
			}
		}
	}
}

// parseEvents decodes a buffer of raw inotify events. Consecutive events
// for the same name collapse into one Change.
//
// Inotify event layout (from inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, padded to alignment
//	};
func parseEvents(buffer []byte) []Change {
	var changes []Change
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}

		var change Change
		switch {
		case mask&unix.IN_Q_OVERFLOW != 0:
			change = Change{}
		case nameLength > 0:
			change = Change{Name: nullTerminatedString(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])}
		default:
			offset += eventSize
			continue
		}

		if len(changes) == 0 || changes[len(changes)-1] != change {
			changes = append(changes, change)
		}
		offset += eventSize
	}
	return changes
}

func nullTerminatedString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
