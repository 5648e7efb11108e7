package synthesis

// GraphNode is one concept in a concept graph with derived graph metrics.
type GraphNode struct {
	Concept    Concept `json:"concept"`
	Centrality float64 `json:"centrality"` // degree-based, normalized to [0,1]
	Cluster    int     `json:"cluster"`
}

// GraphEdge is a materialized concept relationship.
type GraphEdge struct {
	Source string       `json:"source"`
	Target string       `json:"target"`
	Type   RelationType `json:"type"`
	Weight float64      `json:"weight"`
}

// GraphMeta holds graph-level aggregates.
type GraphMeta struct {
	ConceptCount     int             `json:"concept_count"`
	Complexity       float64         `json:"complexity"` // density-derived, [0,1]
	DominantCategory ConceptCategory `json:"dominant_category"`
	EmotionalTone    float64         `json:"emotional_tone"` // [0,1]
	ClusterCount     int             `json:"cluster_count"`
}

// ConceptGraph is the node/edge view over one analysis run's concepts.
// Rebuilt per analysis call; never mutated after construction.
type ConceptGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Meta  GraphMeta   `json:"meta"`
}

// BuildConceptGraph materializes a graph from extracted concepts. Edges come
// from concept relationships whose target exists in the concept set; dangling
// relationship targets are skipped. Duplicate labels across inputs stay
// distinct nodes: collapsing them would silently lose per-input confidence
// and bounds.
func BuildConceptGraph(concepts []Concept) *ConceptGraph {
	graph := &ConceptGraph{
		Nodes: make([]GraphNode, 0, len(concepts)),
	}
	if len(concepts) == 0 {
		return graph
	}

	known := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		known[c.ID] = true
	}

	degree := make(map[string]int, len(concepts))
	seen := make(map[string]bool)
	for _, c := range concepts {
		for _, rel := range c.Relationships {
			if !known[rel.TargetID] || rel.TargetID == c.ID {
				continue
			}
			edgeKey := c.ID + "-" + rel.TargetID
			reverseKey := rel.TargetID + "-" + c.ID
			if seen[edgeKey] || seen[reverseKey] {
				continue
			}
			seen[edgeKey] = true

			graph.Edges = append(graph.Edges, GraphEdge{
				Source: c.ID,
				Target: rel.TargetID,
				Type:   rel.Type,
				Weight: Clamp01(rel.Strength),
			})
			degree[c.ID]++
			degree[rel.TargetID]++
		}
	}

	// Degree centrality, normalized by the maximum possible degree.
	maxDegree := len(concepts) - 1
	for _, c := range concepts {
		node := GraphNode{Concept: c}
		if maxDegree > 0 {
			node.Centrality = float64(degree[c.ID]) / float64(maxDegree)
		}
		graph.Nodes = append(graph.Nodes, node)
	}

	clusterCount := assignClusters(graph)

	graph.Meta = GraphMeta{
		ConceptCount:     len(concepts),
		Complexity:       graphComplexity(len(concepts), len(graph.Edges)),
		DominantCategory: dominantCategory(concepts),
		EmotionalTone:    emotionalTone(concepts),
		ClusterCount:     clusterCount,
	}

	return graph
}

// assignClusters performs community detection via label propagation and
// writes compacted cluster ids onto the nodes. Returns the cluster count.
func assignClusters(graph *ConceptGraph) int {
	if len(graph.Nodes) == 0 {
		return 0
	}

	labels := make(map[string]int, len(graph.Nodes))
	for i, node := range graph.Nodes {
		labels[node.Concept.ID] = i
	}

	neighbors := make(map[string][]string)
	for _, edge := range graph.Edges {
		neighbors[edge.Source] = append(neighbors[edge.Source], edge.Target)
		neighbors[edge.Target] = append(neighbors[edge.Target], edge.Source)
	}

	const maxIterations = 10
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, node := range graph.Nodes {
			id := node.Concept.ID
			if len(neighbors[id]) == 0 {
				continue
			}

			labelCount := make(map[int]int)
			for _, neighbor := range neighbors[id] {
				labelCount[labels[neighbor]]++
			}

			maxCount := 0
			maxLabel := labels[id]
			for label, count := range labelCount {
				if count > maxCount {
					maxCount = count
					maxLabel = label
				}
			}

			if labels[id] != maxLabel {
				labels[id] = maxLabel
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	clusterMap := make(map[int]int)
	nextCluster := 0
	for i := range graph.Nodes {
		label := labels[graph.Nodes[i].Concept.ID]
		if _, ok := clusterMap[label]; !ok {
			clusterMap[label] = nextCluster
			nextCluster++
		}
		graph.Nodes[i].Cluster = clusterMap[label]
	}

	return nextCluster
}

// graphComplexity maps edge density to [0,1]. A fully connected graph is
// maximally complex; a single node has complexity 0.
func graphComplexity(nodes, edges int) float64 {
	if nodes < 2 {
		return 0
	}
	maxEdges := nodes * (nodes - 1) / 2
	return Clamp01(float64(edges) / float64(maxEdges))
}

func dominantCategory(concepts []Concept) ConceptCategory {
	if len(concepts) == 0 {
		return CategoryAbstract
	}
	counts := make(map[ConceptCategory]int)
	for _, c := range concepts {
		counts[c.Category]++
	}
	// Stable winner: iterate in a fixed category order so ties don't flap.
	order := []ConceptCategory{
		CategoryObject, CategoryStyle, CategoryEmotion,
		CategoryAction, CategorySetting, CategoryAbstract,
	}
	best := CategoryAbstract
	bestCount := -1
	for _, cat := range order {
		if counts[cat] > bestCount {
			bestCount = counts[cat]
			best = cat
		}
	}
	return best
}

// emotionalTone is the confidence-weighted mean emotional weight.
func emotionalTone(concepts []Concept) float64 {
	var weighted, total float64
	for _, c := range concepts {
		weighted += c.EmotionalWeight * c.Confidence
		total += c.Confidence
	}
	if total == 0 {
		return 0
	}
	return Clamp01(weighted / total)
}

// TopConcepts returns up to k nodes ranked by confidence x (1 + centrality),
// preserving node order for equal scores.
func (g *ConceptGraph) TopConcepts(k int) []Concept {
	if k <= 0 || len(g.Nodes) == 0 {
		return nil
	}

	type ranked struct {
		concept Concept
		score   float64
		index   int
	}
	items := make([]ranked, 0, len(g.Nodes))
	for i, node := range g.Nodes {
		items = append(items, ranked{
			concept: node.Concept,
			score:   node.Concept.Confidence * (1 + node.Centrality),
			index:   i,
		})
	}

	// Insertion-style stable selection keeps ties in node order.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].score > items[j-1].score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}

	if k > len(items) {
		k = len(items)
	}
	result := make([]Concept, 0, k)
	for _, item := range items[:k] {
		result = append(result, item.concept)
	}
	return result
}

// SpatialConcepts returns the concepts that carry spatial bounds.
func (g *ConceptGraph) SpatialConcepts() []Concept {
	var result []Concept
	for _, node := range g.Nodes {
		if node.Concept.Bounds != nil {
			result = append(result, node.Concept)
		}
	}
	return result
}
