// Package extract pulls characters, locations and events out of a query.
//
// Characters and locations come from a Recognizer; the default Gazetteer
// matches query words against the corpus vocabulary after Russian stemming,
// so inflected forms resolve to the names the scenes are annotated with.
// Events come from a fixed phrase table and are matched independently of
// recognition, so they survive a recognizer failure.
package extract
