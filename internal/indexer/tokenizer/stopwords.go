package tokenizer

// defaultStopWords covers English function words, generic academic filler
// that occurs in almost every abstract, and the Chinese equivalents found in
// translated titles and summaries.
var defaultStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"as": {}, "if": {}, "into": {}, "via": {}, "about": {}, "between": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {},
	"has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"can": {}, "shall": {}, "we": {}, "they": {}, "you": {}, "it": {},
	"he": {}, "she": {}, "his": {}, "her": {}, "its": {}, "their": {},
	"our": {}, "your": {}, "my": {}, "me": {}, "him": {}, "them": {}, "us": {},
	"from": {}, "up": {}, "out": {}, "down": {}, "off": {}, "over": {},
	"under": {}, "again": {}, "further": {}, "then": {}, "once": {},
	"here": {}, "there": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"what": {}, "which": {}, "who": {}, "all": {}, "any": {}, "both": {},
	"each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {},
	"such": {}, "no": {}, "nor": {}, "not": {}, "only": {}, "own": {},
	"same": {}, "so": {}, "than": {}, "too": {}, "very": {}, "just": {},
	"now": {}, "also": {}, "however": {}, "although": {}, "though": {},
	"while": {}, "et": {}, "al": {},

	"paper": {}, "method": {}, "methods": {}, "approach": {},
	"approaches": {}, "result": {}, "results": {}, "show": {}, "shows": {},
	"using": {}, "used": {}, "use": {}, "based": {}, "propose": {},
	"proposed": {}, "algorithm": {}, "algorithms": {}, "present": {},
	"work": {}, "study": {}, "novel": {},

	"的": {}, "了": {}, "和": {}, "是": {}, "在": {}, "与": {}, "及": {},
	"或": {}, "等": {}, "对": {}, "并": {}, "将": {}, "该": {}, "中": {},
	"我们": {}, "本文": {}, "论文": {}, "方法": {}, "结果": {}, "提出": {},
	"一种": {}, "基于": {}, "通过": {}, "使用": {}, "研究": {}, "表明": {},
}
