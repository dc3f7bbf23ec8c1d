package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/bootstrap"
)

type assessOptions struct {
	tenantID     string
	file         string
	age          int
	income       float64
	creditScore  int
	dti          float64
	latePayments int
	city         string
	loanAmount   float64
	loanTerm     int
	loanPurpose  string
}

func newAssessCmd(root *rootOptions) *cobra.Command {
	opts := &assessOptions{}
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess one applicant for a tenant",
		Example: `  crediface-cli assess --tenant banco_demo --age 35 --income 4500000 --credit-score 680 --city Bogotá
  crediface-cli assess --tenant banco_demo --file applicant.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), root, func(c *bootstrap.Container) error {
				rec, err := c.Assessments.Assess(cmd.Context(), opts.tenantID, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tenantID, "tenant", "t", "", "tenant (institution) id")
	f.StringVarP(&opts.file, "file", "f", "", "read the applicant from a JSON file, - for stdin")
	f.IntVar(&opts.age, "age", 0, "applicant age")
	f.Float64Var(&opts.income, "income", 0, "monthly income")
	f.IntVar(&opts.creditScore, "credit-score", 0, "credit score (300-850)")
	f.Float64Var(&opts.dti, "dti", 0, "debt to income ratio (0-1)")
	f.IntVar(&opts.latePayments, "late-payments", 0, "number of late payments")
	f.StringVar(&opts.city, "city", "", "applicant city")
	f.Float64Var(&opts.loanAmount, "loan-amount", 0, "requested loan amount")
	f.IntVar(&opts.loanTerm, "loan-term", 0, "loan term in months")
	f.StringVar(&opts.loanPurpose, "loan-purpose", "", "loan purpose")
	_ = cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagsMutuallyExclusive("file", "age")
	return cmd
}

// request builds the assessment request from --file or from the applicant flags.
// Optional fields are only set when their flag was given.
func (o *assessOptions) request(cmd *cobra.Command) (*dto.AssessmentRequest, error) {
	if o.file != "" {
		var (
			data []byte
			err  error
		)
		if o.file == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(o.file)
		}
		if err != nil {
			return nil, fmt.Errorf("read applicant: %w", err)
		}
		req := &dto.AssessmentRequest{}
		if err := json.Unmarshal(data, req); err != nil {
			return nil, fmt.Errorf("parse applicant: %w", err)
		}
		return req, nil
	}

	req := &dto.AssessmentRequest{
		Age:            o.age,
		MonthlyIncome:  o.income,
		City:           o.city,
		LoanAmount:     o.loanAmount,
		LoanTermMonths: o.loanTerm,
		LoanPurpose:    o.loanPurpose,
	}
	flags := cmd.Flags()
	if flags.Changed("credit-score") {
		req.CreditScore = &o.creditScore
	}
	if flags.Changed("dti") {
		req.DebtToIncomeRatio = &o.dti
	}
	if flags.Changed("late-payments") {
		req.LatePayments = &o.latePayments
	}
	return req, nil
}
