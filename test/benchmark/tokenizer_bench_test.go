package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "Robust Model Compression for Vision Transformers",
	"medium": `We study structured pruning of attention heads in large language
        models. Our method removes redundant heads while preserving downstream
        accuracy, and combines naturally with low-rank factorization and
        post-training quantization. Experiments on translation and summarization
        benchmarks show a threefold reduction in parameters.`,
	"long": strings.Repeat(`Graph neural networks propagate information along
        edges to learn node representations. Message passing layers aggregate
        neighbourhood features, and readout functions pool node embeddings into
        a graph level representation used for classification and regression. `, 20),
	"mixed": "大规模语言模型的压缩方法 Efficient compression of large language models",
}

func BenchmarkTokenize(b *testing.B) {
	tok := tokenizer.New(tokenizer.Capabilities{})
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	tok := tokenizer.New(tokenizer.Capabilities{})
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tok.Tokenize(text)
		}
	})
}

func BenchmarkTokenizeLemmatized(b *testing.B) {
	lem, err := tokenizer.NewDictionaryLemmatizer()
	if err != nil {
		b.Fatal(err)
	}
	tok := tokenizer.New(tokenizer.Capabilities{Lemmatizer: lem})
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tok.Tokenize(text)
	}
}

func BenchmarkTokenizeStemmed(b *testing.B) {
	tok := tokenizer.New(tokenizer.Capabilities{Lemmatizer: tokenizer.SnowballStemmer{}})
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tok.Tokenize(text)
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	tok := tokenizer.New(tokenizer.Capabilities{})
	baseWord := "sparse attention transformer compression "
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}
