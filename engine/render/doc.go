// Package render is a small fixed-pipeline software rasterizer.
//
// Pipeline:
//
//	Scene → Transform → Projection → Clipping → Rasterization → Target.
//
// Geometry is expressed in single precision (mgl32) relative to the current
// focus, so absolute world magnitudes never reach this package. The renderer
// draws into a caller-provided Target and does not allocate in the hot path
// once its depth buffer has been sized.
package render
