// Package imagetest provides deterministic fixtures for exercising the
// image pipeline in tests: synthetic encoded images and a scripted
// getter with call counting and gating.
//
// Import it from _test files only:
//
//	g := imagetest.NewGetter()
//	g.Respond("https://cdn.example.com/a.png", imagetest.PNG(t, 64, 64))
package imagetest
