package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>ReviewGoat</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; background: #854d0e; color: #fde047; }
        .status.completed { background: #166534; color: #4ade80; }
        .status.failed { background: #991b1b; color: #fca5a5; }
        form { display: flex; gap: 0.75rem; padding: 2rem 2rem 0; }
        input { flex: 1; padding: 0.75rem 1rem; border-radius: 8px; border: 1px solid #475569; background: #1e293b; color: #f1f5f9; }
        input[type=number] { flex: 0 0 8rem; }
        button { padding: 0.75rem 1.5rem; border: 0; border-radius: 8px; background: #38bdf8; color: #0f172a; font-weight: 600; cursor: pointer; }
        button:disabled { opacity: 0.5; cursor: wait; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(240px, 1fr)); gap: 1rem; padding: 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 2rem; font-weight: 700; color: #f1f5f9; }
        .card.accent { border-color: #38bdf8; }
        .card.accent .value { color: #38bdf8; }
        .checklist li { list-style: none; display: flex; justify-content: space-between; padding: 0.25rem 0; }
        .verdict { font-weight: 600; color: #4ade80; }
        .verdict.Mixed, .verdict.Unclear { color: #fbbf24; }
        .warn { margin: 0 2rem; color: #fbbf24; font-size: 0.875rem; }
        .gallery { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 1rem; padding: 0 2rem 2rem; }
        .gallery figure { background: #1e293b; border: 1px solid #334155; border-radius: 12px; overflow: hidden; }
        .gallery img { width: 100%; height: 200px; object-fit: cover; }
        .gallery figcaption { padding: 0.75rem; font-size: 0.8rem; color: #cbd5e1; }
        .POSITIVE { color: #4ade80; } .NEGATIVE { color: #f87171; } .NEUTRAL { color: #94a3b8; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>ReviewGoat</h1>
        <span class="status" id="status">No runs yet</span>
    </div>
    <form id="run">
        <input id="url" type="url" placeholder="Product page URL" required>
        <input id="max" type="number" min="0" placeholder="Max reviews">
        <button id="go" type="submit">Analyze</button>
    </form>
    <div class="grid">
        <div class="card accent"><div class="label">Positive Reviews</div><div class="value" id="positive">–</div></div>
        <div class="card"><div class="label">Reviews Analyzed</div><div class="value" id="total">–</div></div>
        <div class="card"><div class="label">Average Rating</div><div class="value" id="rating">–</div></div>
        <div class="card"><div class="label">Checklist</div><ul class="checklist" id="checklist"></ul></div>
    </div>
    <div class="warn" id="warnings"></div>
    <div class="gallery" id="gallery"></div>
    <div class="footer">ReviewGoat {{version}}</div>
    <script>
        const $ = id => document.getElementById(id);
        const esc = s => String(s ?? '').replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));

        function render(run) {
            if (!run) return;
            $('status').textContent = run.status;
            $('status').className = 'status ' + run.status;
            const rep = run.report;
            $('positive').textContent = rep ? Math.round(rep.percent_positive) + '%' : '–';
            $('total').textContent = rep ? rep.total : (run.reviews || []).length;
            $('rating').textContent = rep && rep.rated_reviews ? rep.average_rating.toFixed(2) + ' / 5' : '–';
            $('checklist').innerHTML = rep ? Object.entries(rep.checklist).map(([k, v]) =>
                '<li><span>' + esc(k) + '</span><span class="verdict ' + esc(v) + '">' + esc(v) + '</span></li>').join('') : '';
            $('warnings').innerHTML = (run.warnings || []).concat(run.error ? [run.error] : []).map(esc).join('<br>');
        }

        async function gallery() {
            const r = await fetch('/api/runs/latest/gallery');
            if (!r.ok) return;
            const g = await r.json();
            $('gallery').innerHTML = g.items.map(i =>
                '<figure><img loading="lazy" src="' + esc(i.url) + '"><figcaption><b>' + esc(i.reviewer) + '</b> ' +
                esc(i.rating ? i.rating + '★' : '') + ' <span class="' + esc(i.sentiment) + '">' + esc(i.sentiment) + '</span><br>' +
                esc(i.summary) + '</figcaption></figure>').join('');
        }

        async function latest() {
            const r = await fetch('/api/runs/latest');
            if (!r.ok) return;
            render(await r.json());
            gallery();
        }

        $('run').addEventListener('submit', async e => {
            e.preventDefault();
            $('go').disabled = true;
            $('status').textContent = 'Running…';
            $('status').className = 'status';
            try {
                const body = { url: $('url').value };
                if ($('max').value) body.max_reviews = Number($('max').value);
                const r = await fetch('/api/runs', { method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body) });
                const d = await r.json();
                render(r.ok ? d : (d.run || { status: 'failed', error: d.error }));
                gallery();
            } catch (err) {
                render({ status: 'failed', error: String(err) });
            } finally {
                $('go').disabled = false;
            }
        });

        latest();
    </script>
</body>
</html>`
