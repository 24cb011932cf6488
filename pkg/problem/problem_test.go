package problem

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/linusheck/synthesis/pkg/coloring"
)

var _ = Describe("Problem", func() {
	Context("loading the scenario file", func() {
		var p *Problem

		BeforeEach(func() {
			var err error
			p, err = Load(filepath.Join("testdata", "scenario.yaml"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("reads the model", func() {
			Expect(p.Model.NumStates()).To(Equal(2))
			Expect(p.Model.NumChoices()).To(Equal(4))
			Expect(p.Model.RowGroups()).To(Equal([]int{0, 2, 4}))
			v, ok := p.Model.Value(1, "x")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(int64(1)))
		})

		It("reads the tree and variables", func() {
			Expect(p.Variables).To(HaveLen(1))
			Expect(p.Variables[0].Domain).To(Equal([]int64{0, 1}))
			Expect(p.Tree).To(HaveLen(3))
			Expect(p.Tree[0].True).To(Equal(1))
			Expect(p.Tree[0].False).To(Equal(2))
		})

		It("reads the queries", func() {
			Expect(p.Queries).To(HaveLen(4))
			Expect(p.Queries[0].Consistency()).To(BeFalse())
			Expect(p.Queries[1].Consistency()).To(BeTrue())
			Expect(p.Queries[3].Hint).To(ConsistOf(coloring.CorePair{Choice: 3, Path: 0}))
		})

		It("builds an engine that answers the queries", func() {
			e, err := p.Engine()
			Expect(err).ToNot(HaveOccurred())
			Expect(e.NumHoles()).To(Equal(4))

			q := p.Queries[0]
			base, err := q.ChoiceSet(e)
			Expect(err).ToNot(HaveOccurred())
			selection, err := e.SelectCompatibleChoicesFrom(q.FamilyFor(e), base)
			Expect(err).ToNot(HaveOccurred())
			Expect(selection.Count()).To(Equal(uint(4)))

			q = p.Queries[2]
			choices, err := q.ChoiceSet(e)
			Expect(err).ToNot(HaveOccurred())
			result, err := e.AreChoicesConsistent(choices, q.FamilyFor(e))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Consistent).To(BeFalse())
			Expect(result.Assignment[result.HarmonizingHole]).To(Equal([]int{0, 1}))
		})

		It("runs every query", func() {
			e, err := p.Engine()
			Expect(err).ToNot(HaveOccurred())
			var answers []*Answer
			for _, q := range p.Queries {
				a, err := q.Run(e)
				Expect(err).ToNot(HaveOccurred())
				answers = append(answers, a)
			}

			Expect(answers[0].Selected).To(Equal([]int{0, 1, 2, 3}))
			Expect(answers[0].Consistent).To(BeNil())
			Expect(*answers[1].Consistent).To(BeTrue())
			Expect(answers[1].Assignment).To(HaveLen(4))
			for _, a := range answers[2:] {
				Expect(*a.Consistent).To(BeFalse())
				Expect(a.Harmonizing).To(Equal("T0"))
				Expect(a.Core).To(Equal([]coloring.CorePair{{Choice: 0, Path: 0}, {Choice: 3, Path: 0}}))
			}
		})

		It("honours the number of actions", func() {
			p.NumActions = 3
			e, err := p.Engine()
			Expect(err).ToNot(HaveOccurred())
			Expect(e.FamilyInfo()[0].NumOptions).To(Equal(3))
		})
	})

	DescribeTable("rejecting malformed problems",
		func(data string) {
			_, err := Parse([]byte(data))
			Expect(err).To(HaveOccurred())
		},
		Entry("not yaml", "variables: [x"),
		Entry("no states", "tree: [{parent: 1, childTrue: 1, childFalse: 1}]\nmodel: {initial: 0}"),
		Entry("no tree", "model: {initial: 0, states: [{choices: [{action: 0, destinations: [0]}]}]}"),
		Entry("unnamed query", "tree: [{parent: 1, childTrue: 1, childFalse: 1}]\n"+
			"model: {initial: 0, states: [{choices: [{action: 0, destinations: [0]}]}]}\n"+
			"queries: [{choices: [0]}]"),
		Entry("hint without choices", "tree: [{parent: 1, childTrue: 1, childFalse: 1}]\n"+
			"model: {initial: 0, states: [{choices: [{action: 0, destinations: [0]}]}]}\n"+
			"queries: [{name: q, hint: [{choice: 0, path: 0}]}]"),
	)

	It("rejects choices outside the model", func() {
		p, err := Parse([]byte("tree: [{parent: 1, childTrue: 1, childFalse: 1}]\n" +
			"model: {initial: 0, states: [{choices: [{action: 0, destinations: [0]}]}]}\n" +
			"queries: [{name: q, choices: [4]}]"))
		Expect(err).ToNot(HaveOccurred())
		e, err := p.Engine()
		Expect(err).ToNot(HaveOccurred())
		_, err = p.Queries[0].ChoiceSet(e)
		Expect(err).To(MatchError(ContainSubstring("out of range")))
	})
})
