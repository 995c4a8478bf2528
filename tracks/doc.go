// Package tracks implements the pre-reconstruction feature-track graph: a
// bipartite graph whose rows are shots, whose columns are tracks, and whose
// cells are observations.
//
// The graph is independent of any scene-graph map; an external matching
// stage populates it and the incremental reconstruction loop reads
// co-visibility from it. Conversion to and from a map's observation index
// is explicit.
//
// A Manager is not safe for concurrent mutation. The bulk read queries
// (AllCommonObservations, AllPairsConnectivity) fan out internally but do
// not mutate the graph.
package tracks
