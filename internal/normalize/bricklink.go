package normalize

import (
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
)

var brickLinkAddress = [8]string{
	"shipping.address.name.first",
	"shipping.address.name.last",
	"shipping.address.country_code",
	"shipping.address.postal_code",
	"shipping.address.address1",
	"shipping.address.address2",
	"shipping.address.city",
	"shipping.address.state",
}

// BrickLinkOrder maps a BrickLink order detail ("data" of GET /orders/{id}).
// total_weight is reported in grams. rawItems may be nil.
func BrickLinkOrder(raw map[string]any, rawItems any) (*models.OrderRecord, error) {
	p := payload{src: models.SourceBrickLink, m: raw}

	id, err := p.str("order_id")
	if err != nil {
		return nil, err
	}
	status, err := p.str("status")
	if err != nil {
		return nil, err
	}
	ordered, err := p.str("date_ordered")
	if err != nil {
		return nil, err
	}
	grams, err := p.str("total_weight")
	if err != nil {
		return nil, err
	}
	addr, err := address(p, brickLinkAddress)
	if err != nil {
		return nil, err
	}
	oz, err := GramsToOunces(grams)
	if err != nil {
		return nil, errors.Wrapf(err, "bricklink order %s", id)
	}

	var changed *string
	if s := p.optStr("date_status_changed"); s != nil {
		f := FormatDate(*s)
		changed = &f
	}

	return &models.OrderRecord{
		Source:          models.SourceBrickLink,
		NativeID:        id,
		CrossPlatformID: models.CrossPlatformID(models.SourceBrickLink, id),
		Address:         addr,
		Status:          status,
		CreatedAt:       FormatDate(ordered),
		StatusChangedAt: changed,
		Weight:          oz,
		WeightUnit:      models.WeightUnitOunce,
		Items:           optionalItems(rawItems, BrickLinkItems),
	}, nil
}

// BrickLinkItems maps GET /orders/{id}/items. BrickLink groups items in
// batches (a list of lists); a flat list is accepted too.
func BrickLinkItems(raw any) ([]models.LineItem, error) {
	list, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]models.LineItem, 0, len(list))
	for _, entry := range list {
		if batch, ok := entry.([]any); ok {
			for _, e := range batch {
				it, err := brickLinkItem(e)
				if err != nil {
					return nil, err
				}
				out = append(out, it)
			}
			continue
		}
		it, err := brickLinkItem(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func brickLinkItem(v any) (models.LineItem, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return models.LineItem{}, errors.New("bricklink item is not an object")
	}
	p := payload{src: models.SourceBrickLink, m: m}

	title, err := p.str("item.name")
	if err != nil {
		return models.LineItem{}, err
	}
	sku, err := p.str("item.no")
	if err != nil {
		return models.LineItem{}, err
	}
	qty, err := p.str("quantity")
	if err != nil {
		return models.LineItem{}, err
	}
	grams, err := p.str("weight")
	if err != nil {
		return models.LineItem{}, err
	}
	n, err := toInt(qty)
	if err != nil {
		return models.LineItem{}, errors.Wrapf(err, "bricklink item %s quantity", sku)
	}
	oz, err := GramsToOunces(grams)
	if err != nil {
		return models.LineItem{}, errors.Wrapf(err, "bricklink item %s", sku)
	}
	return models.LineItem{
		Title:      title,
		Quantity:   n,
		SKU:        sku,
		Weight:     oz,
		WeightUnit: models.WeightUnitOunce,
	}, nil
}
