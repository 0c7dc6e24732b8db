package bvh

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// The size in bytes of a serialized node.
const NodeSize = 128

// Serialize nodes into a flat little-endian buffer that a traversal
// kernel can consume without further processing.
func EncodeNodes(nodes []Node) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(nodes)*NodeSize))
	for index := range nodes {
		// Writes to a bytes.Buffer never fail for fixed-size values.
		_ = binary.Write(buf, binary.LittleEndian, &nodes[index])
	}
	return buf.Bytes()
}

// Deserialize a buffer produced by EncodeNodes.
func DecodeNodes(data []byte) ([]Node, error) {
	if len(data)%NodeSize != 0 {
		return nil, fmt.Errorf("bvh: node buffer length %d is not a multiple of %d", len(data), NodeSize)
	}

	nodes := make([]Node, len(data)/NodeSize)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, nodes); err != nil {
		return nil, fmt.Errorf("bvh: could not decode node buffer: %v", err)
	}
	return nodes, nil
}
