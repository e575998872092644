/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logbuffer

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/flyweight"
)

// Metadata section field offsets. The section follows the PartitionCount
// term buffers in the log file; LogMetaDataLength is its fixed size.
const (
	metaDataTermTailCountersOffset        int32 = 0  // 3 * 8 bytes, one per partition
	metaDataActivePartitionIndexOffset    int32 = 24
	metaDataInitialTermIDOffset           int32 = 32
	metaDataMTULengthOffset               int32 = 36
	metaDataTermLengthOffset              int32 = 40
	metaDataTimeOfLastStatusMessageOffset int32 = 48
	metaDataIsConnectedOffset             int32 = 56
	metaDataDefaultFrameHeaderOffset      int32 = 64

	// LogMetaDataLength is the total fixed size of the metadata section.
	LogMetaDataLength int32 = 128
)

// Meta is the typed, read-mostly view over the log's metadata section
// (spec.md §4.2). The 64-bit fields and the 32-bit GetVolatile accessors
// are atomic loads; Int32Field.Get is a plain load. The tail counters are
// mutated by the term.Appender (fetch-add / CAS) and the active-partition-
// index by Publication's term rotation (ordered-release), never by Meta
// itself.
type Meta struct {
	buffer *atomic.Buffer

	TailCounter          [PartitionCount]flyweight.Int64Field
	ActivePartitionIndex flyweight.Int32Field
	InitTermID           flyweight.Int32Field
	MTULength            flyweight.Int32Field
	TermLength           flyweight.Int32Field
	TimeOfLastStatusMsg  flyweight.Int64Field
	IsConnectedFlag      flyweight.Int32Field
	DefaultFrameHeader   flyweight.BufferField
}

func newMeta(buffer *atomic.Buffer) *Meta {
	m := &Meta{buffer: buffer}
	for i := 0; i < PartitionCount; i++ {
		m.TailCounter[i] = flyweight.NewInt64Field(buffer, metaDataTermTailCountersOffset+int32(i)*8)
	}
	m.ActivePartitionIndex = flyweight.NewInt32Field(buffer, metaDataActivePartitionIndexOffset)
	m.InitTermID = flyweight.NewInt32Field(buffer, metaDataInitialTermIDOffset)
	m.MTULength = flyweight.NewInt32Field(buffer, metaDataMTULengthOffset)
	m.TermLength = flyweight.NewInt32Field(buffer, metaDataTermLengthOffset)
	m.TimeOfLastStatusMsg = flyweight.NewInt64Field(buffer, metaDataTimeOfLastStatusMessageOffset)
	m.IsConnectedFlag = flyweight.NewInt32Field(buffer, metaDataIsConnectedOffset)
	m.DefaultFrameHeader = flyweight.NewBufferField(buffer, metaDataDefaultFrameHeaderOffset, DataFrameHeader.Length)
	return m
}

// IsConnected reports the driver's last-written is-connected flag.
func (m *Meta) IsConnected() bool {
	return m.IsConnectedFlag.GetVolatile() != 0
}

// SetConnected is used by the simulated driver / conductor in tests to
// flip the connection flag.
func (m *Meta) SetConnected(connected bool) {
	v := int32(0)
	if connected {
		v = 1
	}
	m.IsConnectedFlag.SetOrdered(v)
}

// LogBuffers owns the PartitionCount term buffers plus the metadata
// section, either mmap'd from a driver-created file or wrapped in-memory
// for tests.
type LogBuffers struct {
	partitions [PartitionCount]*atomic.Buffer
	metaData   *atomic.Buffer
	meta       *Meta
	termLength int32

	file    *os.File
	mapping mmap.MMap
}

// Wrap builds a LogBuffers directly over an in-memory byte slice, used by
// unit tests that do not want a filesystem round trip. raw must be
// exactly 3*termLength + LogMetaDataLength bytes.
func Wrap(raw []byte, termLength int32) (*LogBuffers, error) {
	expected := int(termLength)*PartitionCount + int(LogMetaDataLength)
	if len(raw) != expected {
		return nil, fmt.Errorf("logbuffer: raw length %d does not match expected %d for termLength %d", len(raw), expected, termLength)
	}

	lb := &LogBuffers{termLength: termLength}
	for i := 0; i < PartitionCount; i++ {
		buf := new(atomic.Buffer)
		buf.WrapSlice(raw[int32(i)*termLength : int32(i+1)*termLength])
		lb.partitions[i] = buf
	}

	metaBuf := new(atomic.Buffer)
	metaBuf.WrapSlice(raw[int32(PartitionCount)*termLength:])
	lb.metaData = metaBuf
	lb.meta = newMeta(metaBuf)

	return lb, nil
}

// MapExisting mmaps a log file previously created by the driver at path.
// The file is expected to already be sized 3*termLength+LogMetaDataLength;
// termLength is derived from the file size.
func MapExisting(path string) (*LogBuffers, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbuffer: opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("logbuffer: stat log file: %w", err)
	}

	totalLength := info.Size()
	termLength := int32((totalLength - int64(LogMetaDataLength)) / PartitionCount)

	mapping, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("logbuffer: mmap log file: %w", err)
	}

	lb := &LogBuffers{termLength: termLength, file: file, mapping: mapping}
	raw := []byte(mapping)
	for i := 0; i < PartitionCount; i++ {
		buf := new(atomic.Buffer)
		buf.WrapSlice(raw[int32(i)*termLength : int32(i+1)*termLength])
		lb.partitions[i] = buf
	}

	metaBuf := new(atomic.Buffer)
	metaBuf.WrapSlice(raw[int32(PartitionCount)*termLength:])
	lb.metaData = metaBuf
	lb.meta = newMeta(metaBuf)

	return lb, nil
}

// Buffer returns the term buffer for the given partition index.
func (lb *LogBuffers) Buffer(partitionIndex int) *atomic.Buffer {
	return lb.partitions[partitionIndex]
}

// Meta returns the typed metadata view.
func (lb *LogBuffers) Meta() *Meta {
	return lb.meta
}

// TermLength returns the fixed length of each term partition.
func (lb *LogBuffers) TermLength() int32 {
	return lb.termLength
}

// Close unmaps and closes the underlying log file, if this LogBuffers was
// created via MapExisting. A Wrap-created (in-memory) instance is a no-op.
func (lb *LogBuffers) Close() error {
	if lb.mapping == nil {
		return nil
	}

	if err := lb.mapping.Unmap(); err != nil {
		return fmt.Errorf("logbuffer: unmap: %w", err)
	}
	if err := lb.file.Close(); err != nil {
		return fmt.Errorf("logbuffer: close log file: %w", err)
	}
	return nil
}
