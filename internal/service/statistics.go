package service

import "github.com/unclebandit/campaigner/internal/model"

type FailedRecipient struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Detail string `json:"detail"`
}

type Statistics struct {
	Total            int               `json:"total"`
	Sent             int               `json:"sent_count"`
	Failed           int               `json:"failed_count"`
	NotSent          int               `json:"not_sent_count"`
	Clicked          int               `json:"clicked_count"`
	NotClicked       int               `json:"not_clicked_count"`
	FailedRecipients []FailedRecipient `json:"failed"`
}

// ComputeStatistics counts outcomes and link clicks. It does not modify c.
func ComputeStatistics(c *model.Campaign) Statistics {
	st := Statistics{
		Total:            len(c.Recipients),
		FailedRecipients: []FailedRecipient{},
	}
	for i, r := range c.Recipients {
		switch r.Status {
		case model.StatusSent:
			st.Sent++
		case model.StatusFailed:
			st.Failed++
			st.FailedRecipients = append(st.FailedRecipients, FailedRecipient{
				Index:  i,
				Name:   r.Name,
				Phone:  r.Phone,
				Detail: r.Result(),
			})
		default:
			st.NotSent++
		}
	}
	for _, t := range c.Tracking {
		if t.Clicked {
			st.Clicked++
		} else {
			st.NotClicked++
		}
	}
	return st
}

// CampaignStats computes the statistics of the named campaign.
func (s *CampaignService) CampaignStats(name string) (Statistics, error) {
	c, err := s.GetCampaign(name)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(c), nil
}
