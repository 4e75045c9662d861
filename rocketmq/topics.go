package rocketmq

import "strings"

// AllTags 订阅主题下的全部标签.
const AllTags = "*"

// Subscription 单个主题订阅.
type Subscription struct {
	// Topic 主题名称
	Topic string
	// Expression 标签表达式，如 tag1||tag2，默认 *
	Expression string
}

// Topics 按首次出现顺序排列的主题订阅列表，主题名唯一.
type Topics []Subscription

// ParseTopics 解析主题配置.
//
// 格式为 topic1:tag1||tag2,topic2 ：逗号分隔多个主题，主题与标签表达式以第一个冒号分隔.
// 未指定标签或标签为空时订阅全部标签 (*). 空主题被忽略；
// 同一主题重复出现时以最后一次为准，但保留首次出现的位置.
func ParseTopics(spec string) Topics {
	if strings.TrimSpace(spec) == "" {
		return Topics{}
	}

	topics := Topics{}
	index := make(map[string]int)
	for _, entry := range strings.Split(spec, ",") {
		topic, expr, _ := strings.Cut(entry, ":")
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		expr = strings.TrimSpace(expr)
		if expr == "" {
			expr = AllTags
		}

		if i, ok := index[topic]; ok {
			topics[i].Expression = expr
			continue
		}
		index[topic] = len(topics)
		topics = append(topics, Subscription{Topic: topic, Expression: expr})
	}
	return topics
}

// Len 返回主题数量.
func (t Topics) Len() int {
	return len(t)
}

// First 返回第一个配置的主题，用作生产者的默认主题.
func (t Topics) First() (string, bool) {
	if len(t) == 0 {
		return "", false
	}
	return t[0].Topic, true
}

// Expression 返回主题的标签表达式.
func (t Topics) Expression(topic string) (string, bool) {
	for _, s := range t {
		if s.Topic == topic {
			return s.Expression, true
		}
	}
	return "", false
}

// Names 按顺序返回主题名称.
func (t Topics) Names() []string {
	names := make([]string, len(t))
	for i, s := range t {
		names[i] = s.Topic
	}
	return names
}

// Map 返回主题到标签表达式的映射.
func (t Topics) Map() map[string]string {
	m := make(map[string]string, len(t))
	for _, s := range t {
		m[s.Topic] = s.Expression
	}
	return m
}
