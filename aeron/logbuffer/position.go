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

// ComputePosition converts a (termId, termOffset) pair into the 64-bit
// monotonic stream position, per spec.md §3.
func ComputePosition(activeTermID int32, termOffset int32, positionBitsToShift uint8, initialTermID int32) int64 {
	termCount := int64(activeTermID - initialTermID)
	return (termCount << positionBitsToShift) + int64(termOffset)
}

// ComputeTermIDFromPosition is the inverse of ComputePosition's term id
// component.
func ComputeTermIDFromPosition(position int64, positionBitsToShift uint8, initialTermID int32) int32 {
	return int32(position>>positionBitsToShift) + initialTermID
}

// ComputeTermOffsetFromPosition is the inverse of ComputePosition's term
// offset component.
func ComputeTermOffsetFromPosition(position int64, positionBitsToShift uint8) int32 {
	mask := (int64(1) << positionBitsToShift) - 1
	return int32(position & mask)
}

// ComputeTermBeginPosition returns the position of termOffset zero within
// the given term.
func ComputeTermBeginPosition(activeTermID int32, positionBitsToShift uint8, initialTermID int32) int64 {
	termCount := int64(activeTermID - initialTermID)
	return termCount << positionBitsToShift
}
