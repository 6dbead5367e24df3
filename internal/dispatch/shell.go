package dispatch

import (
	"context"
	"fmt"
)

func (d *Dispatcher) tabs() (Tabs, error) {
	if d.deps.Tabs == nil {
		return nil, fmt.Errorf("%w: no tab registry", ErrInvalidRequest)
	}
	return d.deps.Tabs, nil
}

// tabUpdated records the pushed tab and runs the update cycle for it.
func (d *Dispatcher) tabUpdated(ctx context.Context, req Request) (OK, error) {
	tabs, err := d.tabs()
	if err != nil {
		return OK{}, err
	}
	if req.Tab == nil {
		return OK{}, fmt.Errorf("%w: tab-updated needs a tab", ErrInvalidRequest)
	}
	tab := *req.Tab
	tabs.UpdateTab(tab)
	if len(req.Snapshot) > 0 {
		tabs.PushSnapshot(tab.ID, req.Snapshot)
	}
	if err := d.deps.Engine.HandleTabUpdate(ctx, tab.ID); err != nil {
		return failed(err), nil
	}
	return OK{OK: true}, nil
}

func (d *Dispatcher) tabActivated(ctx context.Context, req Request) (OK, error) {
	tabs, err := d.tabs()
	if err != nil {
		return OK{}, err
	}
	if req.Tab != nil {
		tab := *req.Tab
		tab.Active = true
		tabs.UpdateTab(tab)
		req.TabID = tab.ID
	} else if err := tabs.Activate(req.TabID); err != nil {
		return failed(err), nil
	}
	if err := d.deps.Engine.HandleTabActivated(ctx, req.TabID); err != nil {
		return failed(err), nil
	}
	return OK{OK: true}, nil
}

func (d *Dispatcher) tabRemoved(req Request) (OK, error) {
	tabs, err := d.tabs()
	if err != nil {
		return OK{}, err
	}
	tabs.RemoveTab(req.TabID)
	return OK{OK: true}, nil
}

// navigationCommitted reports a top-level navigation. The tab state may
// come with the request.
func (d *Dispatcher) navigationCommitted(ctx context.Context, req Request) (OK, error) {
	tabs, err := d.tabs()
	if err != nil {
		return OK{}, err
	}
	id := req.TabID
	if req.Tab != nil {
		tabs.UpdateTab(*req.Tab)
		id = req.Tab.ID
	}
	if err := d.deps.Engine.HandleNavigation(ctx, id); err != nil {
		return failed(err), nil
	}
	return OK{OK: true}, nil
}

func (d *Dispatcher) snapshot(req Request) (OK, error) {
	tabs, err := d.tabs()
	if err != nil {
		return OK{}, err
	}
	if len(req.Snapshot) == 0 {
		return OK{}, fmt.Errorf("%w: snapshot is empty", ErrInvalidRequest)
	}
	tabs.PushSnapshot(req.TabID, req.Snapshot)
	return OK{OK: true}, nil
}

func (d *Dispatcher) interceptorInput(req Request) (OK, error) {
	if err := d.deps.Interceptor.InputChanged(req.TabID, req.Message); err != nil {
		return OK{}, err
	}
	return OK{OK: true}, nil
}

