// Package softgpu implements gpucore.Device in CPU memory.
//
// Every buffer and texture layer is a byte slice, so the device needs no GPU
// and its contents can be inspected. Invalid writes are logged and dropped
// the way a GPU queue reports validation errors; invalid copies return an
// error.
package softgpu
