package devserver

// Endpoint paths served next to the site.
const (
	LiveReloadPath       = "/__livereload"
	LiveReloadScriptPath = "/__livereload.js"
	MetricsPath          = "/__metrics"
)

// ClientScript connects to the live-reload endpoint. css events re-request every
// stylesheet in place, reload events reload the page and error events are logged.
const ClientScript = `(() => {
  if (window.__ASSETFLOW_LR__) return;
  window.__ASSETFLOW_LR__ = true;
  function swapStyles() {
    const stamp = Date.now();
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href, location.href);
      if (url.origin !== location.origin) return;
      url.searchParams.set('livereload', stamp);
      link.href = url.toString();
    });
  }
  function connect() {
    const es = new EventSource('` + LiveReloadPath + `');
    es.onmessage = (e) => {
      let ev;
      try { ev = JSON.parse(e.data); } catch (_) { return; }
      switch (ev.kind) {
        case 'css': swapStyles(); break;
        case 'reload': location.reload(); break;
        case 'error': console.error('[assetflow] task ' + ev.task + ' failed: ' + ev.message); break;
      }
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

const scriptTag = `<script async src="` + LiveReloadScriptPath + `"></script>`
