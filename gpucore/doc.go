// Package gpucore defines the GPU device contract used by the atlas and
// batching packages.
//
// The allocation and batching machinery never talks to a graphics API
// directly. It calls a small [Device] interface that creates buffers and
// texture arrays, writes bytes into them and copies texture regions between
// layers. Thin adapters translate this contract to concrete backends:
//
//	        +------------------------+
//	        |  atlas.Set  batch.*    |
//	        +-----------+------------+
//	                    |
//	             gpucore.Device
//	                    |
//	     +--------------+--------------+
//	     |                             |
//	+----v-------------+     +---------v--------+
//	| backend/native   |     | internal/softgpu |
//	| (wgpu hal)       |     | (CPU memory)     |
//	+------------------+     +---------^--------+
//	                                   |
//	                         +---------+--------+
//	                         | internal/gputest |
//	                         | (recording fake) |
//	                         +------------------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID]).
// Adapters keep the mapping between IDs and backend objects. The zero ID
// ([InvalidID]) never names a live resource.
//
// # Synchronization
//
// Writes may be executed immediately or queued until the next submission;
// callers never read results back, so both behaviors are valid.
package gpucore
