// Package preview is an interactive compositor for timeline-based media
// editing, built on Ebitengine.
//
// The package renders an ordered list of timeline elements (text, images,
// shapes, progress bars, spectrum waveforms, audio, video, subtitles) onto a
// stage, keeping every element synchronized to an external playback clock.
// Each element is materialized by a Renderer; the Manager reconciles the live
// renderer set against each new element list, creating, diffing, and
// destroying renderers as the timeline changes. The Stage layers the editing
// affordances on top: selection, drag with alignment-guide snapping, and
// in-place text editing.
//
// Elements are immutable snapshots. Renderers never mutate them; edits flow
// upward as patches through Host.UpdateElement, and a fresh element list
// flows back down on the next reconcile.
//
// Basic usage:
//
//	host := &preview.Host{ /* resource loaders, fonts, audio graph */ }
//	stage := preview.NewStage(preview.StageConfig{Width: 1920, Height: 1080}, host)
//	stage.SetPlaybackSource(clock)
//	stage.SetElements(elements)
//	ebiten.RunGame(stage)
package preview
