package normalize

import (
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
)

// Stubs maps a marketplace order listing. Both marketplaces name the fields
// order_id and status. Malformed entries are left out: the valid stubs are
// returned together with a *models.SkippedEntriesError describing them.
func Stubs(src models.Source, raw any) ([]models.OrderStub, error) {
	list, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrderStub, 0, len(list))
	var skipped []error
	for i, e := range list {
		st, err := stub(src, e)
		if err != nil {
			skipped = append(skipped, errors.Wrapf(err, "entry %d", i))
			continue
		}
		out = append(out, st)
	}
	if len(skipped) > 0 {
		return out, &models.SkippedEntriesError{Source: src, Entries: skipped}
	}
	return out, nil
}

func stub(src models.Source, e any) (models.OrderStub, error) {
	m, ok := e.(map[string]any)
	if !ok {
		return models.OrderStub{}, errors.Errorf("%s order list entry is not an object", src)
	}
	p := payload{src: src, m: m}
	id, err := p.str("order_id")
	if err != nil {
		return models.OrderStub{}, err
	}
	status, err := p.str("status")
	if err != nil {
		return models.OrderStub{}, err
	}
	return models.OrderStub{Source: src, ID: id, Status: status}, nil
}
