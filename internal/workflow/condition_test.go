package workflow_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal/workflow"
)

var _ = Describe("RuleGroup", func() {
	attrs := map[string]interface{}{
		"leave_type": "annual",
		"days":       float64(4),
		"staff_type": "contract",
	}

	DescribeTable("single rules",
		func(rule workflow.Rule, expected bool) {
			group := &workflow.RuleGroup{Rules: []workflow.Rule{rule}}
			Expect(group.Validate()).To(Succeed())
			Expect(group.Evaluate(attrs)).To(Equal(expected))
		},
		Entry("eq string", workflow.Rule{Field: "leave_type", Operator: workflow.OpEq, Value: "annual"}, true),
		Entry("ne string", workflow.Rule{Field: "leave_type", Operator: workflow.OpNe, Value: "annual"}, false),
		Entry("eq number across types", workflow.Rule{Field: "days", Operator: workflow.OpEq, Value: 4}, true),
		Entry("gt", workflow.Rule{Field: "days", Operator: workflow.OpGt, Value: float64(3)}, true),
		Entry("gte boundary", workflow.Rule{Field: "days", Operator: workflow.OpGte, Value: float64(4)}, true),
		Entry("lt", workflow.Rule{Field: "days", Operator: workflow.OpLt, Value: float64(4)}, false),
		Entry("lte with numeric string", workflow.Rule{Field: "days", Operator: workflow.OpLte, Value: "4.5"}, true),
		Entry("in", workflow.Rule{Field: "staff_type", Operator: workflow.OpIn, Value: []interface{}{"contract", "intern"}}, true),
		Entry("not in", workflow.Rule{Field: "staff_type", Operator: workflow.OpNotIn, Value: []interface{}{"contract"}}, false),
		Entry("missing attribute", workflow.Rule{Field: "department", Operator: workflow.OpNe, Value: "x"}, false),
		Entry("non numeric comparison", workflow.Rule{Field: "leave_type", Operator: workflow.OpGt, Value: float64(1)}, false),
	)

	It("applies when empty or nil", func() {
		var nilGroup *workflow.RuleGroup
		Expect(nilGroup.Evaluate(attrs)).To(BeTrue())
		Expect((&workflow.RuleGroup{}).Evaluate(attrs)).To(BeTrue())
	})

	It("combines rules and nested groups", func() {
		var group workflow.RuleGroup
		Expect(json.Unmarshal([]byte(`{
			"match": "and",
			"rules": [{"field": "leave_type", "operator": "eq", "value": "annual"}],
			"groups": [{
				"match": "or",
				"rules": [
					{"field": "days", "operator": "gt", "value": 10},
					{"field": "staff_type", "operator": "in", "value": ["contract"]}
				]
			}]
		}`), &group)).To(Succeed())
		Expect(group.Validate()).To(Succeed())
		Expect(group.Evaluate(attrs)).To(BeTrue())

		Expect(group.Evaluate(map[string]interface{}{"leave_type": "annual", "days": float64(2), "staff_type": "permanent"})).To(BeFalse())
		Expect(group.Evaluate(map[string]interface{}{"leave_type": "sick", "days": float64(20)})).To(BeFalse())
	})

	It("rejects malformed groups", func() {
		Expect((&workflow.RuleGroup{Match: "xor"}).Validate()).NotTo(Succeed())
		Expect((&workflow.RuleGroup{Rules: []workflow.Rule{{Operator: workflow.OpEq}}}).Validate()).NotTo(Succeed())
		Expect((&workflow.RuleGroup{Rules: []workflow.Rule{{Field: "days", Operator: "between"}}}).Validate()).NotTo(Succeed())
		Expect((&workflow.RuleGroup{Rules: []workflow.Rule{{Field: "days", Operator: workflow.OpIn, Value: "x"}}}).Validate()).NotTo(Succeed())
		Expect((&workflow.RuleGroup{Groups: []workflow.RuleGroup{{Match: "nor"}}}).Validate()).NotTo(Succeed())
	})
})

var _ = Describe("ParseDeclineRouting", func() {
	It("parses every routing form", func() {
		r, err := workflow.ParseDeclineRouting("terminate")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Kind).To(Equal(workflow.RouteTerminate))

		r, err = workflow.ParseDeclineRouting("back_to_owner")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Kind).To(Equal(workflow.RouteBackToOwner))

		r, err = workflow.ParseDeclineRouting("back_to_step:2")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(workflow.DeclineRouting{Kind: workflow.RouteBackToStep, Step: 2}))
		Expect(r.String()).To(Equal("back_to_step:2"))
	})

	It("rejects anything else", func() {
		for _, s := range []string{"", "back_to_step", "back_to_step:0", "back_to_step:x", "cancel"} {
			_, err := workflow.ParseDeclineRouting(s)
			Expect(err).To(HaveOccurred(), s)
		}
	})
})
