// Package packer implements shelf-based rectangle packing for one fixed-size
// texture layer.
//
// The layer is divided into horizontal shelves. Each shelf keeps a sorted
// list of free horizontal spans, so released rectangles are merged with
// their free neighbors and reused. Shelves that become completely empty are
// merged with adjacent empty shelves, and trailing empty shelves give their
// height back to the unused area at the bottom of the layer.
//
// A Packer is not safe for concurrent use.
package packer
