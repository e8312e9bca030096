package normalize

import (
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
)

var brickOwlAddress = [8]string{
	"ship_first_name",
	"ship_last_name",
	"ship_country_code",
	"ship_post_code",
	"ship_street_1",
	"ship_street_2",
	"ship_city",
	"ship_region",
}

// BrickOwlOrder maps a Brick Owl order/view payload. Weight is already in
// ounces, order_time is epoch seconds. rawItems may be nil.
func BrickOwlOrder(raw map[string]any, rawItems any) (*models.OrderRecord, error) {
	p := payload{src: models.SourceBrickOwl, m: raw}

	id, err := p.str("order_id")
	if err != nil {
		return nil, err
	}
	status, err := p.str("status")
	if err != nil {
		return nil, err
	}
	statusID, err := p.str("status_id")
	if err != nil {
		return nil, err
	}
	orderTime, err := p.str("order_time")
	if err != nil {
		return nil, err
	}
	weight, err := p.str("weight")
	if err != nil {
		return nil, err
	}
	addr, err := address(p, brickOwlAddress)
	if err != nil {
		return nil, err
	}
	code, err := toInt(statusID)
	if err != nil {
		return nil, errors.Wrapf(err, "brickowl order %s status_id", id)
	}

	return &models.OrderRecord{
		Source:          models.SourceBrickOwl,
		NativeID:        id,
		CrossPlatformID: models.CrossPlatformID(models.SourceBrickOwl, id),
		Address:         addr,
		Status:          status,
		StatusCode:      &code,
		CreatedAt:       FormatEpoch(orderTime),
		Weight:          weight,
		WeightUnit:      models.WeightUnitOunce,
		Items:           optionalItems(rawItems, BrickOwlItems),
	}, nil
}

// BrickOwlItems maps the order/items list.
func BrickOwlItems(raw any) ([]models.LineItem, error) {
	list, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]models.LineItem, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, errors.New("brickowl item is not an object")
		}
		p := payload{src: models.SourceBrickOwl, m: m}

		title, err := p.str("name")
		if err != nil {
			return nil, err
		}
		qty, err := p.str("ordered_quantity")
		if err != nil {
			return nil, err
		}
		lot, err := p.str("lot_id")
		if err != nil {
			return nil, err
		}
		weight, err := p.str("weight")
		if err != nil {
			return nil, err
		}
		n, err := toInt(qty)
		if err != nil {
			return nil, errors.Wrapf(err, "brickowl lot %s quantity", lot)
		}
		out = append(out, models.LineItem{
			Title:      title,
			Quantity:   n,
			SKU:        lot,
			Weight:     weight,
			WeightUnit: models.WeightUnitOunce,
		})
	}
	return out, nil
}
