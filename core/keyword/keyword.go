// Package keyword holds the shared concept lookup tables used for entity
// extraction during retrieval and topic tagging during graph construction.
// Both sides read from the same tables so a query and the graph it queries
// agree on entity ids.
package keyword

import (
	"sort"
	"strings"
)

// Concept is a well-known entity a query keyword maps to.
type Concept struct {
	EntityID string
	Name     string
	Type     string
}

// TopicRule tags chunk content with a topic when any of its keywords match.
type TopicRule struct {
	Keywords []string
	Topic    string
}

var concepts = map[string]Concept{
	"rag":  {EntityID: "rag_tech", Name: "RAG技术", Type: "Concept"},
	"向量检索": {EntityID: "vector_search", Name: "向量检索", Type: "Concept"},
	"知识图谱": {EntityID: "knowledge_graph", Name: "知识图谱", Type: "Concept"},
	"人工智能": {EntityID: "ai_system", Name: "人工智能", Type: "System"},
	"机器学习": {EntityID: "machine_learning", Name: "机器学习", Type: "Concept"},
	"深度学习": {EntityID: "deep_learning", Name: "深度学习", Type: "Concept"},
}

var defaultConcepts = []Concept{
	{EntityID: "general_ai", Name: "人工智能", Type: "System"},
	{EntityID: "general_tech", Name: "技术", Type: "Concept"},
}

var topicRules = []TopicRule{
	{Keywords: []string{"rag", "检索"}, Topic: "RAG技术"},
	{Keywords: []string{"知识图谱", "图谱"}, Topic: "知识图谱"},
	{Keywords: []string{"向量", "嵌入"}, Topic: "向量检索"},
	{Keywords: []string{"ai", "人工智能"}, Topic: "人工智能"},
}

// ExtractConcepts returns the concepts whose keyword appears in the query,
// matched case insensitively. When nothing matches it falls back to the
// general concepts so graph retrieval always has an entry point.
func ExtractConcepts(query string) []Concept {
	lowered := strings.ToLower(query)

	var found []Concept
	for keyword, concept := range concepts {
		if strings.Contains(lowered, keyword) {
			found = append(found, concept)
		}
	}
	if len(found) == 0 {
		return append([]Concept{}, defaultConcepts...)
	}

	// Map iteration order is random, keep the output stable.
	sort.Slice(found, func(i, j int) bool {
		return found[i].EntityID < found[j].EntityID
	})
	return found
}

// MatchedKeywords returns the raw concept keywords present in the query,
// matched case insensitively and sorted.
func MatchedKeywords(query string) []string {
	lowered := strings.ToLower(query)

	var matched []string
	for entry := range concepts {
		if strings.Contains(lowered, entry) {
			matched = append(matched, entry)
		}
	}
	sort.Strings(matched)
	return matched
}

// ExtractTopics returns the topics whose rule matches the given content,
// in rule order.
func ExtractTopics(content string) []string {
	lowered := strings.ToLower(content)

	var topics []string
	for _, rule := range topicRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				topics = append(topics, rule.Topic)
				break
			}
		}
	}
	return topics
}

// TopicEntityID derives the node id for a topic name.
func TopicEntityID(topic string) string {
	return "topic_" + strings.ReplaceAll(topic, " ", "_")
}
