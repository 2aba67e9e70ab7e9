// Package log provides the logging facade shared by the graph, engine,
// trainer and store packages.
//
// The Logger interface keeps the rest of the module independent of any
// concrete logging library. Two implementations ship with the module: the
// stdlib-only TextLogger and a GologLogger backed by kataras/golog for
// colored, leveled terminal output. Discard silences a component entirely.
//
// Components that are not handed a logger explicitly fall back to the
// process-wide default:
//
//	log.SetDefault(log.NewGologLoggerWithLevel(golog.Default, log.LevelDebug))
//	log.Default().Info("training segment %d/%d", i, n)
package log
